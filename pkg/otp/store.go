// Package otp holds single-use email-bound verification codes in memory,
// enforcing independent sliding-window rate limits on issuance and
// verification. Grounded on the in-memory map-plus-mutex-plus-sweeper shape
// used for OTPs elsewhere in the retrieved corpus; this store never falls
// back to or mirrors into Redis, matching the single-process event-scale
// design this system targets.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/clock"
)

const codeDigits = 6

// Config holds the tunable windows and limits for the store.
type Config struct {
	TTL          time.Duration // how long an issued code remains live
	IssueWindow  time.Duration // sliding window for issuance rate limiting
	IssueMax     int           // max issuances per email within IssueWindow
	VerifyWindow time.Duration // sliding window for verify-attempt rate limiting
	VerifyMax    int           // max verify attempts per email within VerifyWindow
}

type record struct {
	code               string
	issuedAt           time.Time
	expiresAt          time.Time
	hasCode            bool
	issueTimes         []time.Time
	verifyAttemptTimes []time.Time
}

// Store holds OTP state for every email currently mid-registration.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	cfg     Config
	entries map[string]*record
}

// New creates an OTP store using c for all time measurements.
func New(c clock.Clock, cfg Config) *Store {
	return &Store{
		clock:   c,
		cfg:     cfg,
		entries: make(map[string]*record),
	}
}

// Issue mints and stores a new 6-digit code for email, subject to the
// issuance sliding window. Returns the code to deliver to the caller.
func (s *Store) Issue(email string) (string, *apperr.Error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[email]
	if !ok {
		rec = &record{}
		s.entries[email] = rec
	}

	rec.issueTimes = pruneBefore(rec.issueTimes, now.Add(-s.cfg.IssueWindow))
	if len(rec.issueTimes) >= s.cfg.IssueMax {
		retryAfter := s.cfg.IssueWindow - now.Sub(rec.issueTimes[0])
		return "", apperr.New(apperr.CodeRateLimited, "too many verification codes requested, try again later").
			WithData("window", "issue").
			WithRetryAfter(retryAfter)
	}

	code, err := generateCode()
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "generating OTP code", err)
	}

	rec.code = code
	rec.hasCode = true
	rec.issuedAt = now
	rec.expiresAt = now.Add(s.cfg.TTL)
	rec.verifyAttemptTimes = nil
	rec.issueTimes = append(rec.issueTimes, now)

	return code, nil
}

// Verify checks submitted against the live code for email. A match
// consumes the entry. Returns nil on success.
func (s *Store) Verify(email, submitted string) *apperr.Error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[email]
	if !ok || !rec.hasCode || !now.Before(rec.expiresAt) {
		if ok {
			rec.hasCode = false
		}
		return apperr.New(apperr.CodeOTPExpired, "no live verification code for this email")
	}

	rec.verifyAttemptTimes = pruneBefore(rec.verifyAttemptTimes, now.Add(-s.cfg.VerifyWindow))
	if len(rec.verifyAttemptTimes) >= s.cfg.VerifyMax {
		retryAfter := s.cfg.VerifyWindow - now.Sub(rec.verifyAttemptTimes[0])
		return apperr.New(apperr.CodeRateLimited, "too many incorrect attempts, try again later").
			WithData("window", "verify").
			WithRetryAfter(retryAfter)
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(rec.code)) != 1 {
		rec.verifyAttemptTimes = append(rec.verifyAttemptTimes, now)
		return apperr.New(apperr.CodeOTPInvalid, "submitted code does not match")
	}

	delete(s.entries, email)
	return nil
}

// Sweep removes entries whose code has expired and whose rate-limit
// windows have also gone idle, so the map does not grow unbounded.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, rec := range s.entries {
		if rec.hasCode && now.Before(rec.expiresAt) {
			continue
		}
		rec.hasCode = false

		idleSince := now.Add(-maxDuration(s.cfg.IssueWindow, s.cfg.VerifyWindow))
		rec.issueTimes = pruneBefore(rec.issueTimes, idleSince)
		rec.verifyAttemptTimes = pruneBefore(rec.verifyAttemptTimes, idleSince)

		if len(rec.issueTimes) == 0 && len(rec.verifyAttemptTimes) == 0 {
			delete(s.entries, email)
		}
	}
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000) // 10^6, codeDigits wide
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	out := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
