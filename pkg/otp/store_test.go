package otp

import (
	"testing"
	"time"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/clock"
)

func newTestStore() (*Store, *clock.Fake) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := New(fc, Config{
		TTL:          5 * time.Minute,
		IssueWindow:  60 * time.Second,
		IssueMax:     3,
		VerifyWindow: 15 * time.Minute,
		VerifyMax:    3,
	})
	return s, fc
}

func TestIssueRateLimit(t *testing.T) {
	s, _ := newTestStore()

	for i := 0; i < 3; i++ {
		if _, err := s.Issue("a@x.io"); err != nil {
			t.Fatalf("issue %d: unexpected error %v", i, err)
		}
	}

	_, err := s.Issue("a@x.io")
	if err == nil || err.Code != apperr.CodeRateLimited {
		t.Fatalf("4th issue: got %v, want RateLimited", err)
	}
}

func TestIssueWindowResetsAfterElapse(t *testing.T) {
	s, fc := newTestStore()

	for i := 0; i < 3; i++ {
		if _, err := s.Issue("a@x.io"); err != nil {
			t.Fatalf("issue %d: unexpected error %v", i, err)
		}
	}

	fc.Advance(61 * time.Second)

	if _, err := s.Issue("a@x.io"); err != nil {
		t.Fatalf("issue after window elapsed: unexpected error %v", err)
	}
}

func TestVerifySuccessConsumesEntry(t *testing.T) {
	s, _ := newTestStore()

	code, err := s.Issue("a@x.io")
	if err != nil {
		t.Fatalf("issue: unexpected error %v", err)
	}

	if err := s.Verify("a@x.io", code); err != nil {
		t.Fatalf("verify: unexpected error %v", err)
	}

	if err := s.Verify("a@x.io", code); err == nil || err.Code != apperr.CodeOTPExpired {
		t.Fatalf("second verify: got %v, want OTPExpired", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s, fc := newTestStore()

	code, err := s.Issue("a@x.io")
	if err != nil {
		t.Fatalf("issue: unexpected error %v", err)
	}

	fc.Advance(5*time.Minute + time.Second)

	if err := s.Verify("a@x.io", code); err == nil || err.Code != apperr.CodeOTPExpired {
		t.Fatalf("verify after expiry: got %v, want OTPExpired", err)
	}
}

func TestVerifyRateLimit(t *testing.T) {
	s, _ := newTestStore()

	if _, err := s.Issue("a@x.io"); err != nil {
		t.Fatalf("issue: unexpected error %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Verify("a@x.io", "000000"); err == nil || err.Code != apperr.CodeOTPInvalid {
			t.Fatalf("verify %d: got %v, want OTPInvalid", i, err)
		}
	}

	if err := s.Verify("a@x.io", "000000"); err == nil || err.Code != apperr.CodeRateLimited {
		t.Fatalf("4th verify: got %v, want RateLimited", err)
	}
}

func TestVerifyWrongCodeThenCorrect(t *testing.T) {
	s, _ := newTestStore()

	code, err := s.Issue("a@x.io")
	if err != nil {
		t.Fatalf("issue: unexpected error %v", err)
	}

	if err := s.Verify("a@x.io", "bad000"); err == nil || err.Code != apperr.CodeOTPInvalid {
		t.Fatalf("verify wrong code: got %v, want OTPInvalid", err)
	}

	if err := s.Verify("a@x.io", code); err != nil {
		t.Fatalf("verify correct code: unexpected error %v", err)
	}
}

func TestSweepRemovesIdleExpiredEntries(t *testing.T) {
	s, fc := newTestStore()

	if _, err := s.Issue("a@x.io"); err != nil {
		t.Fatalf("issue: unexpected error %v", err)
	}

	fc.Advance(20 * time.Minute)
	s.Sweep(fc.Now())

	s.mu.Lock()
	_, ok := s.entries["a@x.io"]
	s.mu.Unlock()

	if ok {
		t.Fatal("expected sweep to remove idle expired entry")
	}
}
