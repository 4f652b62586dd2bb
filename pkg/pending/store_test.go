package pending

import (
	"testing"
	"time"

	"github.com/hacksprint/hacksprint/pkg/clock"
)

func TestPutAndTake(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(fc, 15*time.Minute)

	payload := Registration{TeamName: "Solo", LeaderEmail: "a@x.io"}
	s.Put("a@x.io", payload)

	got, ok := s.Take("a@x.io")
	if !ok {
		t.Fatal("expected Take to find the pending entry")
	}
	if got.TeamName != "Solo" {
		t.Errorf("got TeamName %q, want %q", got.TeamName, "Solo")
	}

	if _, ok := s.Take("a@x.io"); ok {
		t.Fatal("expected second Take to report absent (already taken)")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(fc, 15*time.Minute)

	s.Put("a@x.io", Registration{TeamName: "First"})
	s.Put("a@x.io", Registration{TeamName: "Second"})

	got, ok := s.Take("a@x.io")
	if !ok {
		t.Fatal("expected Take to find the pending entry")
	}
	if got.TeamName != "Second" {
		t.Errorf("got TeamName %q, want %q", got.TeamName, "Second")
	}
}

func TestTakeAfterExpiry(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(fc, 15*time.Minute)

	s.Put("a@x.io", Registration{TeamName: "Solo"})
	fc.Advance(15*time.Minute + time.Second)

	if _, ok := s.Take("a@x.io"); ok {
		t.Fatal("expected Take to report absent after expiry")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(fc, 15*time.Minute)

	s.Put("a@x.io", Registration{TeamName: "Solo"})
	fc.Advance(15*time.Minute + time.Second)
	s.Sweep(fc.Now())

	s.mu.Lock()
	_, ok := s.entries["a@x.io"]
	s.mu.Unlock()

	if ok {
		t.Fatal("expected sweep to remove expired entry")
	}
}
