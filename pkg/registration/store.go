package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/identity"
)

const (
	uniqueViolation    = "23505"
	teamCodeConstraint = "teams_team_code_key"
	leaderEmailConstraint = "teams_leader_email_key"
)

// Store is the Postgres-backed Credential Store: durable persistence of
// teams and members with uniqueness constraints enforced by indexes, not
// application-level locks.
type Store struct {
	pool          *pgxpool.Pool
	teamIDPrefix  string
	teamIDWidth   int
	codeRetries   int
}

// NewStore creates a Credential Store.
func NewStore(pool *pgxpool.Pool, teamIDPrefix string, teamIDWidth int, codeRetries int) *Store {
	return &Store{
		pool:         pool,
		teamIDPrefix: teamIDPrefix,
		teamIDWidth:  teamIDWidth,
		codeRetries:  codeRetries,
	}
}

// InsertTeam mints a team_id and team_code and persists the team and its
// members in a single transaction. On a team_code collision it retries
// with a fresh code up to the configured budget; on a leader_email
// collision it fails immediately with CodeEmailAlreadyRegistered.
func (s *Store) InsertTeam(ctx context.Context, input TeamInput) (*Team, *apperr.Error) {
	var lastErr *apperr.Error

	for attempt := 0; attempt <= s.codeRetries; attempt++ {
		team, err := s.tryInsertTeam(ctx, input)
		if err == nil {
			return team, nil
		}

		if err.Code != apperr.CodeInternal || err.Data["collision"] != "team_code" {
			return nil, err
		}
		lastErr = err
	}

	return nil, apperr.New(apperr.CodeInternal, "exhausted team code retry budget").
		WithData("attempts", s.codeRetries+1).
		WithData("cause", lastErr)
}

func (s *Store) tryInsertTeam(ctx context.Context, input TeamInput) (*Team, *apperr.Error) {
	teamCode, err := identity.TeamCode()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "minting team code", err)
	}

	accessKey, err := identity.AccessKey()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "minting access key", err)
	}

	tx, txErr := s.pool.Begin(ctx)
	if txErr != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "beginning transaction", txErr)
	}
	defer tx.Rollback(ctx)

	var sequence int
	if scanErr := tx.QueryRow(ctx, `SELECT nextval('team_sequence')`).Scan(&sequence); scanErr != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "allocating team sequence", scanErr)
	}
	teamID := identity.TeamID(s.teamIDPrefix, s.teamIDWidth, sequence)

	var rowID string
	var createdAt time.Time
	insertTeamSQL := `
		INSERT INTO teams (team_id, team_code, team_name, leader_name, leader_email,
			leader_phone, college_name, year, domain, access_key, attendance_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, now())
		RETURNING id, created_at`

	scanErr := tx.QueryRow(ctx, insertTeamSQL,
		teamID, teamCode, input.TeamName, input.LeaderName, input.LeaderEmail,
		input.LeaderPhone, input.CollegeName, input.Year, input.Domain, accessKey,
	).Scan(&rowID, &createdAt)

	if scanErr != nil {
		if collision := classifyUniqueViolation(scanErr); collision != "" {
			if collision == "team_code" {
				return nil, apperr.New(apperr.CodeInternal, "team code collision").WithData("collision", "team_code")
			}
			return nil, apperr.New(apperr.CodeEmailAlreadyRegistered, "a team is already registered with this leader email")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "inserting team", scanErr)
	}

	members := make([]Member, 0, len(input.Members))
	for i, m := range input.Members {
		participantID := identity.ParticipantID(teamCode, i)

		var memberRowID string
		insertMemberSQL := `
			INSERT INTO team_members (team_row_id, team_id, index, name, email, phone,
				participant_id, is_team_leader)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`

		if scanErr := tx.QueryRow(ctx, insertMemberSQL,
			rowID, teamID, i, m.Name, m.Email, m.Phone, participantID, m.IsTeamLeader,
		).Scan(&memberRowID); scanErr != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "inserting member", scanErr)
		}

		members = append(members, Member{
			ID:            memberRowID,
			TeamID:        teamID,
			Index:         i,
			Name:          m.Name,
			Email:         m.Email,
			Phone:         m.Phone,
			ParticipantID: participantID,
			IsTeamLeader:  m.IsTeamLeader,
		})
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "committing team", commitErr)
	}

	return &Team{
		ID:          rowID,
		TeamID:      teamID,
		TeamCode:    teamCode,
		TeamName:    input.TeamName,
		LeaderName:  input.LeaderName,
		LeaderEmail: input.LeaderEmail,
		LeaderPhone: input.LeaderPhone,
		CollegeName: input.CollegeName,
		Year:        input.Year,
		Domain:      input.Domain,
		AccessKey:   accessKey,
		CreatedAt:   createdAt,
		Members:     members,
	}, nil
}

// CountTeams returns the number of committed teams, used by the
// orchestrator to enforce the configured team-count cap.
func (s *Store) CountTeams(ctx context.Context) (int, *apperr.Error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM teams`).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.CodeInternal, "counting teams", err)
	}
	return count, nil
}

// FindByTeamCode looks up a committed team and its members by team_code.
func (s *Store) FindByTeamCode(ctx context.Context, code string) (*Team, *apperr.Error) {
	return s.findBy(ctx, "team_code", code)
}

// FindByTeamID looks up a committed team and its members by team_id.
func (s *Store) FindByTeamID(ctx context.Context, teamID string) (*Team, *apperr.Error) {
	return s.findBy(ctx, "team_id", teamID)
}

// FindByLeaderEmail looks up a committed team by its leader's email,
// lowercased. Used by the orchestrator's pre-commit duplicate check.
func (s *Store) FindByLeaderEmail(ctx context.Context, email string) (*Team, *apperr.Error) {
	return s.findBy(ctx, "leader_email", email)
}

func (s *Store) findBy(ctx context.Context, column, value string) (*Team, *apperr.Error) {
	query := fmt.Sprintf(`
		SELECT id, team_id, team_code, team_name, leader_name, leader_email, leader_phone,
			college_name, year, domain, access_key, attendance_status, check_in_time, created_at
		FROM teams WHERE %s = $1`, column)

	team := &Team{}
	err := s.pool.QueryRow(ctx, query, value).Scan(
		&team.ID, &team.TeamID, &team.TeamCode, &team.TeamName, &team.LeaderName,
		&team.LeaderEmail, &team.LeaderPhone, &team.CollegeName, &team.Year, &team.Domain,
		&team.AccessKey, &team.AttendanceStatus, &team.CheckInTime, &team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "team not found")
		}
		return nil, apperr.Wrap(apperr.CodeInternal, "querying team", err)
	}

	members, memErr := s.membersForTeam(ctx, team.ID)
	if memErr != nil {
		return nil, memErr
	}
	team.Members = members

	return team, nil
}

func (s *Store) membersForTeam(ctx context.Context, teamRowID string) ([]Member, *apperr.Error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, team_id, index, name, email, phone, participant_id, is_team_leader
		FROM team_members WHERE team_row_id = $1 ORDER BY index ASC`, teamRowID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "querying members", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.TeamID, &m.Index, &m.Name, &m.Email, &m.Phone, &m.ParticipantID, &m.IsTeamLeader); err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "scanning member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "iterating members", err)
	}

	return members, nil
}

// MarkCheckedIn performs the conditional check-in update. Zero rows
// affected with the team present means it was already checked in;
// exactly one caller observes Ok even under concurrent scans, since
// serialization is delegated to the database.
func (s *Store) MarkCheckedIn(ctx context.Context, teamCode string, when time.Time) (*Team, *apperr.Error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE teams SET attendance_status = true, check_in_time = $2
		WHERE team_code = $1 AND attendance_status = false`, teamCode, when)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "updating attendance", err)
	}

	team, findErr := s.FindByTeamCode(ctx, teamCode)
	if findErr != nil {
		return nil, findErr
	}

	if tag.RowsAffected() == 0 {
		return team, apperr.New(apperr.CodeAlreadyCheckedIn, "team already checked in").
			WithData("check_in_time", team.CheckInTime)
	}

	return team, nil
}

// classifyUniqueViolation returns "team_code", "leader_email", or "" for
// errors that are not a unique constraint violation on a known index.
func classifyUniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return ""
	}
	switch pgErr.ConstraintName {
	case teamCodeConstraint:
		return "team_code"
	case leaderEmailConstraint:
		return "leader_email"
	default:
		return "leader_email"
	}
}
