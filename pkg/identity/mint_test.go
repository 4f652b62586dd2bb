package identity

import (
	"regexp"
	"testing"
)

var teamCodeRe = regexp.MustCompile(`^TEAM-[A-Z0-9]{6}$`)

func TestTeamIDFormat(t *testing.T) {
	got := TeamID("HACK", 3, 1)
	want := "HACK-001"
	if got != want {
		t.Errorf("TeamID() = %q, want %q", got, want)
	}

	got = TeamID("HACK", 3, 42)
	want = "HACK-042"
	if got != want {
		t.Errorf("TeamID() = %q, want %q", got, want)
	}
}

func TestTeamCodeFormat(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := TeamCode()
		if err != nil {
			t.Fatalf("TeamCode() error: %v", err)
		}
		if !teamCodeRe.MatchString(code) {
			t.Fatalf("TeamCode() = %q, does not match %s", code, teamCodeRe.String())
		}
	}
}

func TestTeamCodeUniqueAcrossCalls(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := TeamCode()
		if err != nil {
			t.Fatalf("TeamCode() error: %v", err)
		}
		if seen[code] {
			t.Fatalf("TeamCode() produced a duplicate within 500 draws: %s", code)
		}
		seen[code] = true
	}
}

func TestParticipantID(t *testing.T) {
	got := ParticipantID("TEAM-AB12CD", 0)
	want := "TEAM-AB12CD-000"
	if got != want {
		t.Errorf("ParticipantID() = %q, want %q", got, want)
	}

	got = ParticipantID("TEAM-AB12CD", 7)
	want = "TEAM-AB12CD-007"
	if got != want {
		t.Errorf("ParticipantID() = %q, want %q", got, want)
	}
}

func TestAccessKeyLength(t *testing.T) {
	key, err := AccessKey()
	if err != nil {
		t.Fatalf("AccessKey() error: %v", err)
	}
	if len(key) != accessKeyLength {
		t.Errorf("AccessKey() length = %d, want %d", len(key), accessKeyLength)
	}
}
