package registration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hacksprint/hacksprint/pkg/apperr"
)

// phoneDigitsPattern matches a bare 10-20 digit phone number. Length
// bounds are also expressed as validator tags below; this additionally
// rejects letters and punctuation that min/max alone would let through.
var phoneDigitsPattern = regexp.MustCompile(`^[0-9]{10,20}$`)

// MemberRequest is one entry of a RegisterRequest's team_members array.
type MemberRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,min=10,max=20"`
	IsTeamLeader bool   `json:"is_team_leader"`
}

// RegisterRequest is the /register request body. The member count is
// capped at registration.Orchestrator's configured MaxMembers, not here,
// since that cap is operator-configurable (MAX_TEAM_MEMBERS).
type RegisterRequest struct {
	TeamName       string          `json:"team_name" validate:"required,min=2,max=100"`
	LeaderName     string          `json:"leader_name" validate:"required,min=2,max=100"`
	LeaderEmail    string          `json:"leader_email" validate:"required,email"`
	LeaderPhone    string          `json:"leader_phone" validate:"required,min=10,max=20"`
	CollegeName    string          `json:"college_name" validate:"required,min=2,max=100"`
	Year           string          `json:"year" validate:"required,min=1,max=50"`
	Domain         string          `json:"domain" validate:"required,min=1,max=50"`
	TeamMembers    []MemberRequest `json:"team_members" validate:"required,min=1,dive"`
	TermsAccepted  bool            `json:"terms_accepted" validate:"required"`
}

// Validate runs the cross-field checks the validator struct tags cannot
// express: leader identity and position, and the digits-only phone rule.
func (r *RegisterRequest) Validate() []apperr.FieldError {
	var errs []apperr.FieldError

	if !phoneDigitsPattern.MatchString(r.LeaderPhone) {
		errs = append(errs, apperr.FieldError{Field: "leader_phone", Message: "must be 10-20 digits"})
	}
	for i, m := range r.TeamMembers {
		if !phoneDigitsPattern.MatchString(m.Phone) {
			errs = append(errs, apperr.FieldError{Field: fmt.Sprintf("team_members.%d.phone", i), Message: "must be 10-20 digits"})
		}
	}

	if len(r.TeamMembers) == 0 {
		return errs // struct tag already flags this
	}

	if !r.TeamMembers[0].IsTeamLeader {
		errs = append(errs, apperr.FieldError{Field: "team_members.0.is_team_leader", Message: "the first member must be the team leader"})
	}
	if !strings.EqualFold(r.TeamMembers[0].Email, r.LeaderEmail) {
		errs = append(errs, apperr.FieldError{Field: "team_members.0.email", Message: "must equal leader_email"})
	}

	for i := 1; i < len(r.TeamMembers); i++ {
		if r.TeamMembers[i].IsTeamLeader {
			errs = append(errs, apperr.FieldError{Field: "team_members", Message: "only the member at index 0 may be the team leader"})
			break
		}
	}

	return errs
}

// ToTeamInput converts a validated request into the orchestrator's input
// shape.
func (r *RegisterRequest) ToTeamInput() TeamInput {
	members := make([]MemberInput, 0, len(r.TeamMembers))
	for _, m := range r.TeamMembers {
		members = append(members, MemberInput{
			Name:         m.Name,
			Email:        m.Email,
			Phone:        m.Phone,
			IsTeamLeader: m.IsTeamLeader,
		})
	}
	return TeamInput{
		TeamName:    r.TeamName,
		LeaderName:  r.LeaderName,
		LeaderEmail: r.LeaderEmail,
		LeaderPhone: r.LeaderPhone,
		CollegeName: r.CollegeName,
		Year:        r.Year,
		Domain:      r.Domain,
		Members:     members,
	}
}

// VerifyOTPRequest is the /verify-otp request body.
type VerifyOTPRequest struct {
	LeaderEmail string `json:"leader_email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
}

// MemberView is the JSON shape of a member in API responses.
type MemberView struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	ParticipantID string `json:"participant_id"`
	IsTeamLeader  bool   `json:"is_team_leader"`
}

// TeamView is the JSON shape of a team in API responses.
type TeamView struct {
	TeamID           string       `json:"team_id"`
	TeamCode         string       `json:"team_code"`
	TeamName         string       `json:"team_name"`
	LeaderName       string       `json:"leader_name"`
	LeaderEmail      string       `json:"leader_email"`
	CollegeName      string       `json:"college_name"`
	Year             string       `json:"year"`
	Domain           string       `json:"domain"`
	AttendanceStatus bool         `json:"attendance_status"`
	CheckInTime      *string      `json:"check_in_time,omitempty"`
	Members          []MemberView `json:"members"`
}

// ToView converts a Team into its API response shape.
func ToView(t *Team) TeamView {
	members := make([]MemberView, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, MemberView{
			Name:          m.Name,
			Email:         m.Email,
			Phone:         m.Phone,
			ParticipantID: m.ParticipantID,
			IsTeamLeader:  m.IsTeamLeader,
		})
	}

	view := TeamView{
		TeamID:           t.TeamID,
		TeamCode:         t.TeamCode,
		TeamName:         t.TeamName,
		LeaderName:       t.LeaderName,
		LeaderEmail:      t.LeaderEmail,
		CollegeName:      t.CollegeName,
		Year:             t.Year,
		Domain:           t.Domain,
		AttendanceStatus: t.AttendanceStatus,
		Members:          members,
	}

	if t.CheckInTime != nil {
		formatted := t.CheckInTime.UTC().Format("2006-01-02T15:04:05Z07:00")
		view.CheckInTime = &formatted
	}

	return view
}
