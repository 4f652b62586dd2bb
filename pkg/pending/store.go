// Package pending holds validated-but-not-yet-committed registration
// payloads, keyed by leader email, until OTP verification consumes them.
package pending

import (
	"sync"
	"time"

	"github.com/hacksprint/hacksprint/pkg/clock"
)

// Member is one entry of a pending registration's member list.
type Member struct {
	Name         string
	Email        string
	Phone        string
	IsTeamLeader bool
}

// Registration is the validated payload held between Register and
// VerifyOTP, exactly as received from the caller.
type Registration struct {
	TeamName    string
	LeaderName  string
	LeaderEmail string
	LeaderPhone string
	CollegeName string
	Year        string
	Domain      string
	Members     []Member
}

type record struct {
	payload   Registration
	expiresAt time.Time
}

// Store holds pending registrations in memory, mutex-guarded.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]*record
}

// New creates a pending registration store. ttl should be at least the
// OTP's own TTL plus slack.
func New(c clock.Clock, ttl time.Duration) *Store {
	return &Store{
		clock:   c,
		ttl:     ttl,
		entries: make(map[string]*record),
	}
}

// Put stores payload under email, replacing any existing pending entry
// for the same email (a second Register call for an in-flight email
// replaces the old payload and resets its TTL).
func (s *Store) Put(email string, payload Registration) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[email] = &record{
		payload:   payload,
		expiresAt: now.Add(s.ttl),
	}
}

// Take atomically reads and removes the pending registration for email.
// ok is false if no live entry exists (never registered, already taken,
// or expired).
func (s *Store) Take(email string) (Registration, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[email]
	if !ok {
		return Registration{}, false
	}
	delete(s.entries, email)

	if now.After(rec.expiresAt) {
		return Registration{}, false
	}

	return rec.payload, true
}

// Sweep removes entries that have expired.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, rec := range s.entries {
		if now.After(rec.expiresAt) {
			delete(s.entries, email)
		}
	}
}
