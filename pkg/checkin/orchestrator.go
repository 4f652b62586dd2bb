// Package checkin implements the attendance check-in state transition:
// resolving a scanned QR payload or a manually typed team id to a
// persisted, idempotent-ish check-in record.
package checkin

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/clock"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

var teamIDPattern = regexp.MustCompile(`^[A-Z0-9]+-\d{3,}$`)

// CredentialStore is the persistence boundary the orchestrator needs:
// team lookup plus the conditional check-in update.
type CredentialStore interface {
	FindByTeamCode(ctx context.Context, code string) (*registration.Team, *apperr.Error)
	FindByTeamID(ctx context.Context, teamID string) (*registration.Team, *apperr.Error)
	MarkCheckedIn(ctx context.Context, teamCode string, when time.Time) (*registration.Team, *apperr.Error)
}

// ScanPayload is the minimum shape decoded from a QR scan string.
type ScanPayload struct {
	TeamCode      string `json:"team_code"`
	ParticipantID string `json:"participant_id"`
}

// Result is the response shape for a successful check-in.
type Result struct {
	Team        *registration.Team
	Participant *registration.Member
}

// Orchestrator implements the Check-In Orchestrator.
type Orchestrator struct {
	credentials CredentialStore
	bus         *Bus
	clock       clock.Clock
}

// NewOrchestrator constructs a Check-In Orchestrator.
func NewOrchestrator(credentials CredentialStore, bus *Bus, c clock.Clock) *Orchestrator {
	return &Orchestrator{credentials: credentials, bus: bus, clock: c}
}

// CheckInScan resolves a QR scan payload (raw JSON string) and checks the
// team in.
func (o *Orchestrator) CheckInScan(ctx context.Context, rawPayload string) (*Result, *apperr.Error) {
	var payload ScanPayload
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		return nil, apperr.New(apperr.CodeInvalidPayload, "scan payload is not valid JSON")
	}
	if payload.TeamCode == "" || payload.ParticipantID == "" {
		return nil, apperr.New(apperr.CodeInvalidPayload, "scan payload missing team_code or participant_id")
	}

	team, err := o.credentials.FindByTeamCode(ctx, payload.TeamCode)
	if err != nil {
		return nil, err
	}

	participant := team.MemberByParticipantID(payload.ParticipantID)

	updated, checkErr := o.checkIn(ctx, team, participant)
	if updated == nil {
		return nil, checkErr
	}

	return &Result{Team: updated, Participant: participant}, checkErr
}

// CheckInManual checks in a team identified by its raw team_id.
func (o *Orchestrator) CheckInManual(ctx context.Context, teamID string) (*Result, *apperr.Error) {
	if !teamIDPattern.MatchString(teamID) {
		return nil, apperr.New(apperr.CodeValidation, "team_id does not match the expected PREFIX-NNN shape")
	}

	team, err := o.credentials.FindByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	leader := team.Leader()
	updated, checkErr := o.checkIn(ctx, team, leader)
	if updated == nil {
		return nil, checkErr
	}
	return &Result{Team: updated, Participant: leader}, checkErr
}

// checkIn performs the conditional persistence update and publishes a
// checkin event. participant is whichever member triggered the check-in
// (the scanned member for CheckInScan, always the leader for
// CheckInManual) and may be nil if it could not be resolved from the
// payload.
func (o *Orchestrator) checkIn(ctx context.Context, team *registration.Team, participant *registration.Member) (*registration.Team, *apperr.Error) {
	updated, err := o.credentials.MarkCheckedIn(ctx, team.TeamCode, o.clock.Now())
	if err != nil {
		return updated, err
	}

	participantName := ""
	isLeader := false
	if participant != nil {
		participantName = participant.Name
		isLeader = participant.IsTeamLeader
	}

	o.bus.Publish(Event{
		TeamID:          updated.TeamID,
		TeamCode:        updated.TeamCode,
		TeamName:        updated.TeamName,
		ParticipantName: participantName,
		IsTeamLeader:    isLeader,
		CheckInTime:     *updated.CheckInTime,
	})

	return updated, nil
}
