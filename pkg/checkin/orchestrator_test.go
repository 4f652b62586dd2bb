package checkin

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/clock"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

// fakeStore is an in-memory CredentialStore double whose MarkCheckedIn
// mirrors the conditional-update semantics of the Postgres-backed store:
// the first caller wins, every later caller observes the same
// check-in time and an AlreadyCheckedIn error.
type fakeStore struct {
	mu   sync.Mutex
	team *registration.Team
}

func newFakeStore(team *registration.Team) *fakeStore {
	return &fakeStore{team: team}
}

func (f *fakeStore) FindByTeamCode(ctx context.Context, code string) (*registration.Team, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.team.TeamCode != code {
		return nil, apperr.New(apperr.CodeNotFound, "not found")
	}
	copy := *f.team
	return &copy, nil
}

func (f *fakeStore) FindByTeamID(ctx context.Context, teamID string) (*registration.Team, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.team.TeamID != teamID {
		return nil, apperr.New(apperr.CodeNotFound, "not found")
	}
	copy := *f.team
	return &copy, nil
}

func (f *fakeStore) MarkCheckedIn(ctx context.Context, teamCode string, when time.Time) (*registration.Team, *apperr.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.team.TeamCode != teamCode {
		return nil, apperr.New(apperr.CodeNotFound, "not found")
	}

	if f.team.AttendanceStatus {
		already := *f.team
		return &already, apperr.New(apperr.CodeAlreadyCheckedIn, "team already checked in").
			WithData("check_in_time", f.team.CheckInTime)
	}

	f.team.AttendanceStatus = true
	f.team.CheckInTime = &when
	updated := *f.team
	return &updated, nil
}

func testTeam() *registration.Team {
	return &registration.Team{
		TeamID:   "HACK-001",
		TeamCode: "TEAM-AB12CD",
		TeamName: "Test Team",
		Members: []registration.Member{
			{TeamID: "HACK-001", Index: 0, Name: "Ada", ParticipantID: "TEAM-AB12CD-000", IsTeamLeader: true},
			{TeamID: "HACK-001", Index: 1, Name: "Bea", ParticipantID: "TEAM-AB12CD-001"},
		},
	}
}

func TestCheckInScanSuccess(t *testing.T) {
	store := newFakeStore(testTeam())
	bus := NewBus(slog.Default())
	fc := clock.NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	o := NewOrchestrator(store, bus, fc)

	payload, _ := json.Marshal(ScanPayload{TeamCode: "TEAM-AB12CD", ParticipantID: "TEAM-AB12CD-001"})

	result, err := o.CheckInScan(context.Background(), string(payload))
	if err != nil {
		t.Fatalf("CheckInScan: unexpected error %v", err)
	}
	if result.Participant == nil || result.Participant.Name != "Bea" {
		t.Fatalf("expected participant Bea, got %+v", result.Participant)
	}
	if !result.Team.AttendanceStatus {
		t.Fatal("expected AttendanceStatus true after check-in")
	}
}

func TestCheckInScanInvalidPayload(t *testing.T) {
	store := newFakeStore(testTeam())
	bus := NewBus(slog.Default())
	fc := clock.NewFake(time.Now())
	o := NewOrchestrator(store, bus, fc)

	_, err := o.CheckInScan(context.Background(), "not json")
	if err == nil || err.Code != apperr.CodeInvalidPayload {
		t.Fatalf("got %v, want InvalidPayload", err)
	}
}

func TestCheckInManualBadTeamIDShape(t *testing.T) {
	store := newFakeStore(testTeam())
	bus := NewBus(slog.Default())
	fc := clock.NewFake(time.Now())
	o := NewOrchestrator(store, bus, fc)

	_, err := o.CheckInManual(context.Background(), "not-a-team-id")
	if err == nil || err.Code != apperr.CodeValidation {
		t.Fatalf("got %v, want Validation", err)
	}
}

// S5 / invariant 6 — 10 concurrent check-ins for the same team resolve to
// exactly one success and nine AlreadyCheckedIn, all reporting the same
// check-in time.
func TestConcurrentCheckInIsIdempotent(t *testing.T) {
	store := newFakeStore(testTeam())
	bus := NewBus(slog.Default())
	fc := clock.NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	o := NewOrchestrator(store, bus, fc)

	const n = 10
	var wg sync.WaitGroup
	results := make([]*apperr.Error, n)
	teams := make([]*registration.Team, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := o.CheckInManual(context.Background(), "HACK-001")
			results[i] = err
			if res != nil {
				teams[i] = res.Team
			}
		}(i)
	}
	wg.Wait()

	successes, already := 0, 0
	var checkInTime *time.Time
	for i := 0; i < n; i++ {
		switch {
		case results[i] == nil:
			successes++
			checkInTime = teams[i].CheckInTime
		case results[i].Code == apperr.CodeAlreadyCheckedIn:
			already++
		default:
			t.Fatalf("unexpected error: %v", results[i])
		}
	}

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if already != n-1 {
		t.Errorf("already-checked-in = %d, want %d", already, n-1)
	}
	if checkInTime == nil {
		t.Fatal("expected a recorded check-in time")
	}
	for i := 0; i < n; i++ {
		if teams[i] != nil && teams[i].CheckInTime != nil && !teams[i].CheckInTime.Equal(*checkInTime) {
			t.Errorf("inconsistent check_in_time across responses: %v vs %v", teams[i].CheckInTime, checkInTime)
		}
	}
}
