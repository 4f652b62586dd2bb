package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hacksprint/hacksprint/pkg/checkin"
)

func TestSlackNotifierDisabledIsNoop(t *testing.T) {
	n := NewSlackNotifier("", "", slog.Default())
	if n.IsEnabled() {
		t.Fatal("expected notifier to be disabled with empty token")
	}

	if err := n.postCheckIn(context.Background(), checkin.Event{TeamID: "HACK-001"}); err != nil {
		t.Fatalf("postCheckIn on disabled notifier: unexpected error %v", err)
	}
}

func TestSlackNotifierRunStopsOnContextCancel(t *testing.T) {
	n := NewSlackNotifier("", "", slog.Default())
	events := make(chan checkin.Event)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx, events)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
