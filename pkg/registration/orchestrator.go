package registration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/clock"
	"github.com/hacksprint/hacksprint/pkg/otp"
	"github.com/hacksprint/hacksprint/pkg/pending"
)

// otpMailMaxAttempts bounds the async retry policy for OTP delivery.
const otpMailMaxAttempts = 5

// CredentialStore is the durable persistence boundary the orchestrator
// depends on, satisfied by *Store in production and by fakes in tests.
type CredentialStore interface {
	InsertTeam(ctx context.Context, input TeamInput) (*Team, *apperr.Error)
	FindByTeamCode(ctx context.Context, code string) (*Team, *apperr.Error)
	FindByTeamID(ctx context.Context, teamID string) (*Team, *apperr.Error)
	FindByLeaderEmail(ctx context.Context, email string) (*Team, *apperr.Error)
	CountTeams(ctx context.Context) (int, *apperr.Error)
}

// ArtifactPipeline renders one ID card per member and assembles them into
// a single multi-page document, returning the document's temporary path.
type ArtifactPipeline interface {
	BuildDocument(ctx context.Context, team *Team) (path string, err error)
}

// Mailer delivers the two message shapes this orchestrator needs.
// Configured is checked synchronously (no network round trip) so Register
// can decide between a dev-mode OTP echo and an async dispatch without
// blocking on a send attempt.
type Mailer interface {
	Configured() bool
	SendOTP(ctx context.Context, email, code string) error
	SendConfirmation(ctx context.Context, email, attachmentPath string, team *Team) error
}

// RegisterResult is the response shape for a successful Register call.
type RegisterResult struct {
	ExpiresInSec int
	DevOTP       string // set only when dev mode is on and mail is unconfigured
}

// VerifyResult is the response shape for a successful VerifyOTP call.
type VerifyResult struct {
	Team            *Team
	ArtifactWarning bool // true if the card/document/mail pipeline failed post-commit
}

// Orchestrator implements the two-phase registration protocol described
// by the Register/VerifyOTP state machine: Register issues an OTP against
// a pending payload; VerifyOTP commits the team and runs the post-commit
// artifact pipeline.
type Orchestrator struct {
	credentials  CredentialStore
	otpStore     *otp.Store
	pendingStore *pending.Store
	artifacts    ArtifactPipeline
	mailer       Mailer
	clock        clock.Clock
	logger       *slog.Logger
	devMode      bool
	maxMembers   int
	maxTeams     int

	// dispatchOTPMail is a seam so tests can observe mail delivery
	// synchronously; production wires it to asyncDispatchOTPMail.
	dispatchOTPMail func(email, code string)
}

// Deps bundles Orchestrator's dependencies for construction.
type Deps struct {
	Credentials  CredentialStore
	OTPStore     *otp.Store
	PendingStore *pending.Store
	Artifacts    ArtifactPipeline
	Mailer       Mailer
	Clock        clock.Clock
	Logger       *slog.Logger
	DevMode      bool
	MaxMembers   int
	MaxTeams     int
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	o := &Orchestrator{
		credentials:  d.Credentials,
		otpStore:     d.OTPStore,
		pendingStore: d.PendingStore,
		artifacts:    d.Artifacts,
		mailer:       d.Mailer,
		clock:        d.Clock,
		logger:       d.Logger,
		devMode:      d.DevMode,
		maxMembers:   d.MaxMembers,
		maxTeams:     d.MaxTeams,
	}
	o.dispatchOTPMail = o.asyncDispatchOTPMail
	return o
}

// Register validates nothing itself (the HTTP adapter validates shape via
// struct tags); it normalizes the email, enforces the team and member caps,
// checks for an existing committed team, stashes the payload, and issues an
// OTP. OTP mail delivery never blocks the response: an unconfigured mailer
// is handled synchronously (dev-mode echo or a logged skip), a configured
// one is dispatched to a background retry loop.
func (o *Orchestrator) Register(ctx context.Context, input TeamInput) (*RegisterResult, *apperr.Error) {
	if o.maxMembers > 0 && len(input.Members) > o.maxMembers {
		return nil, apperr.New(apperr.CodeValidation, fmt.Sprintf("team size exceeds the %d member limit", o.maxMembers))
	}

	if o.maxTeams > 0 {
		count, countErr := o.credentials.CountTeams(ctx)
		if countErr != nil {
			return nil, countErr
		}
		if count >= o.maxTeams {
			return nil, apperr.New(apperr.CodeValidation, "team registration is full")
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.LeaderEmail))
	input.LeaderEmail = email

	if existing, err := o.credentials.FindByLeaderEmail(ctx, email); err == nil && existing != nil {
		return nil, apperr.New(apperr.CodeEmailAlreadyRegistered, "a team is already registered with this leader email")
	}

	o.pendingStore.Put(email, toPendingRegistration(input))

	code, otpErr := o.otpStore.Issue(email)
	if otpErr != nil {
		return nil, otpErr
	}

	result := &RegisterResult{ExpiresInSec: 5 * 60}

	if !o.mailer.Configured() {
		if o.devMode {
			result.DevOTP = code
		} else {
			o.logger.Warn("OTP mail skipped, mailer is not configured", "email", email)
		}
		return result, nil
	}

	o.dispatchOTPMail(email, code)

	return result, nil
}

// asyncDispatchOTPMail sends the OTP mail in the background with a bounded
// exponential backoff retry, so a slow or flaky SMTP transport never delays
// the HTTP response. It uses a background context since the request that
// triggered it may already be gone by the time delivery succeeds.
func (o *Orchestrator) asyncDispatchOTPMail(email, code string) {
	go func() {
		_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
			return struct{}{}, o.mailer.SendOTP(context.Background(), email, code)
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(otpMailMaxAttempts))
		if err != nil {
			o.logger.Error("sending OTP mail failed after retries", "email", email, "error", err)
		}
	}()
}

// VerifyOTP consumes a submitted code, commits the team, and runs the
// post-commit artifact pipeline. A pipeline failure never rolls back the
// commit; it is reported via ArtifactWarning.
func (o *Orchestrator) VerifyOTP(ctx context.Context, leaderEmail, submittedCode string) (*VerifyResult, *apperr.Error) {
	email := strings.ToLower(strings.TrimSpace(leaderEmail))

	if err := o.otpStore.Verify(email, submittedCode); err != nil {
		return nil, err
	}

	payload, ok := o.pendingStore.Take(email)
	if !ok {
		return nil, apperr.New(apperr.CodeRegistrationExpired, "registration data has expired, please register again")
	}

	team, err := o.credentials.InsertTeam(ctx, toTeamInput(payload))
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Team: team}

	path, buildErr := o.artifacts.BuildDocument(ctx, team)
	if buildErr != nil {
		o.logger.Error("artifact pipeline failed after commit", "team_id", team.TeamID, "error", buildErr)
		result.ArtifactWarning = true
		return result, nil
	}
	defer os.Remove(path)

	if mailErr := o.mailer.SendConfirmation(ctx, email, path, team); mailErr != nil {
		o.logger.Error("confirmation mail failed after commit", "team_id", team.TeamID, "error", mailErr)
		result.ArtifactWarning = true
	}

	return result, nil
}

func toPendingRegistration(input TeamInput) pending.Registration {
	members := make([]pending.Member, 0, len(input.Members))
	for _, m := range input.Members {
		members = append(members, pending.Member{
			Name:         m.Name,
			Email:        m.Email,
			Phone:        m.Phone,
			IsTeamLeader: m.IsTeamLeader,
		})
	}
	return pending.Registration{
		TeamName:    input.TeamName,
		LeaderName:  input.LeaderName,
		LeaderEmail: input.LeaderEmail,
		LeaderPhone: input.LeaderPhone,
		CollegeName: input.CollegeName,
		Year:        input.Year,
		Domain:      input.Domain,
		Members:     members,
	}
}

func toTeamInput(p pending.Registration) TeamInput {
	members := make([]MemberInput, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, MemberInput{
			Name:         m.Name,
			Email:        m.Email,
			Phone:        m.Phone,
			IsTeamLeader: m.IsTeamLeader,
		})
	}
	return TeamInput{
		TeamName:    p.TeamName,
		LeaderName:  p.LeaderName,
		LeaderEmail: p.LeaderEmail,
		LeaderPhone: p.LeaderPhone,
		CollegeName: p.CollegeName,
		Year:        p.Year,
		Domain:      p.Domain,
		Members:     members,
	}
}
