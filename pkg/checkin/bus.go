package checkin

import (
	"log/slog"
	"sync"
	"time"
)

// Event is published after a successful check-in, for any attached stats
// stream consumer (e.g. a live dashboard or the Slack notifier).
type Event struct {
	TeamID          string
	TeamCode        string
	TeamName        string
	ParticipantName string
	IsTeamLeader    bool
	CheckInTime     time.Time
}

const subscriberBufferSize = 32

// Bus is a small in-process pub-sub: publish fans out to every subscriber
// channel with a non-blocking send, dropping and logging on a full
// buffer rather than blocking the check-in request, grounded on the same
// buffered-channel-with-drop discipline used for asynchronous writers
// elsewhere in this module.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	logger *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a new subscriber and returns its receive channel.
// The channel is never closed by the bus; callers should read until their
// own context is done.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return ch
}

// Publish fans evt out to every subscriber. A subscriber whose buffer is
// full misses the event; this is logged, not retried.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("check-in event bus: subscriber buffer full, dropping event", "team_id", evt.TeamID)
		}
	}
}
