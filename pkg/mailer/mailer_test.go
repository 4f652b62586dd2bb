package mailer

import (
	"context"
	"testing"

	"github.com/hacksprint/hacksprint/pkg/apperr"
)

func TestSendOTPUnconfigured(t *testing.T) {
	m := New(Config{})

	err := m.SendOTP(context.Background(), "a@x.io", "123456")
	if !apperr.Is(err, apperr.CodeUnconfigured) {
		t.Fatalf("got %v, want Unconfigured", err)
	}
}

func TestConfiguredRequiresHostUserPass(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"empty", Config{}, false},
		{"host only", Config{Host: "smtp.example.com"}, false},
		{"host and user", Config{Host: "smtp.example.com", User: "u"}, false},
		{"fully configured", Config{Host: "smtp.example.com", User: "u", Pass: "p"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.cfg)
			if got := m.configured(); got != tt.want {
				t.Errorf("configured() = %v, want %v", got, tt.want)
			}
		})
	}
}
