// Package mailer delivers OTP and confirmation messages over SMTP with
// STARTTLS, validating its configuration eagerly so a missing credential
// fails fast rather than hanging on a dial.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/domodwyer/mailyak/v3"

	"github.com/hacksprint/hacksprint/pkg/apperr"
	"github.com/hacksprint/hacksprint/pkg/registration"
)

// Config holds SMTP transport settings, loaded once at startup.
type Config struct {
	Host    string
	Port    int
	User    string
	Pass    string
	From    string
	Timeout time.Duration
}

// Mailer sends OTP and confirmation messages via SMTP+STARTTLS,
// implementing registration.Mailer.
type Mailer struct {
	cfg Config
}

// New creates a Mailer. Its configuration is not dialed until Send.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// configured reports whether enough settings are present to attempt a send.
func (m *Mailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.User != "" && m.cfg.Pass != ""
}

// Configured reports whether the SMTP transport is usable, so callers can
// decide synchronously (no network round trip) whether to attempt a send
// at all, implementing registration.Mailer.
func (m *Mailer) Configured() bool {
	return m.configured()
}

func (m *Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
}

// SendOTP delivers the OTP message: the 6-digit code, its validity
// window, and instructions. No attachment.
func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	if !m.configured() {
		return apperr.New(apperr.CodeUnconfigured, "SMTP transport is not configured")
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	yak := mailyak.New(m.addr(), auth)
	yak.From(m.cfg.From)
	yak.FromName("Hacksprint Registration")
	yak.To(email)
	yak.Subject("Your verification code")
	yak.Plain().Set(fmt.Sprintf(
		"Your verification code is %s.\nIt expires in 5 minutes.\nIf you did not request this, ignore this email.",
		code,
	))

	return m.sendWithTimeout(ctx, yak)
}

// SendConfirmation delivers the confirmation message with the assembled
// ID card document attached.
func (m *Mailer) SendConfirmation(ctx context.Context, email, attachmentPath string, team *registration.Team) error {
	if !m.configured() {
		return apperr.New(apperr.CodeUnconfigured, "SMTP transport is not configured")
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	yak := mailyak.New(m.addr(), auth)
	yak.From(m.cfg.From)
	yak.FromName("Hacksprint Registration")
	yak.To(email)
	yak.Subject(fmt.Sprintf("You're registered — %s", team.TeamID))

	body := fmt.Sprintf(
		"Team %s is registered.\nTeam ID: %s\nTeam code: %s\nMembers:\n",
		team.TeamName, team.TeamID, team.TeamCode,
	)
	for _, mem := range team.Members {
		body += fmt.Sprintf("  - %s (%s)\n", mem.Name, mem.ParticipantID)
	}
	body += "\nYour ID cards are attached. Bring them (printed or on a device) to check in.\n"
	yak.Plain().Set(body)

	if err := yak.AttachFile(attachmentPath); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "attaching document", err)
	}

	return m.sendWithTimeout(ctx, yak)
}

// sendWithTimeout runs yak.Send in a goroutine and aborts waiting for it
// after cfg.Timeout, classifying the result per the mailer's failure
// taxonomy. Cancellation never rolls back a prior credential-store commit.
func (m *Mailer) sendWithTimeout(ctx context.Context, yak *mailyak.MailYak) error {
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- yak.Send()
	}()

	select {
	case err := <-done:
		if err != nil {
			return apperr.Wrap(apperr.CodeTransportFailure, "sending mail", err)
		}
		return nil
	case <-ctx.Done():
		return apperr.New(apperr.CodeTransportFailure, "mail send timed out")
	}
}
