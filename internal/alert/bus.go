package alert

import (
	"sync"
	"time"
)

// DefaultTTL is how long a published alert stays live before auto-expiring.
const DefaultTTL = 5 * time.Second

// Severity classifies an alert for presentation.
type Severity int

const (
	SeveritySuccess Severity = iota
	SeverityError
	SeverityInfo
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Alert is a transient user notification.
type Alert struct {
	Message  string
	Severity Severity
	IssuedAt time.Time
}

// Bus is a process-wide transient-notification channel. It holds at most one
// live alert; publishing replaces any pending alert and restarts the expiry
// timer.
type Bus struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Alert
	timer   *time.Timer
	gen     uint64
}

// NewBus constructs a bus with the given expiry duration. Zero means
// DefaultTTL.
func NewBus(ttl time.Duration) *Bus {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Bus{ttl: ttl}
}

// Publish replaces the live alert and (re)starts the expiry timer.
func (b *Bus) Publish(message string, severity Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}

	b.gen++
	gen := b.gen
	b.current = &Alert{
		Message:  message,
		Severity: severity,
		IssuedAt: time.Now(),
	}
	b.timer = time.AfterFunc(b.ttl, func() {
		b.expire(gen)
	})
}

// Clear cancels the expiry timer and removes the live alert immediately.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.current = nil
}

// Current returns the live alert, or nil when none is pending.
func (b *Bus) Current() *Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	copied := *b.current
	return &copied
}

// expire removes the alert only if no newer publish superseded it.
func (b *Bus) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		return
	}
	b.current = nil
	b.timer = nil
}
