package gate

import (
	"sync"
	"time"

	"github.com/viant/authgate/logger"
)

// Notifier surfaces user-visible, keyed notifications. Repeats of the
// same key must not stack.
type Notifier interface {
	Warn(key, message string)
}

// LogNotifier is the default sink, writing through the module logger.
type LogNotifier struct{}

func (LogNotifier) Warn(key, message string) {
	logger.Warnf("[notify:%v] %v", key, message)
}

// Throttled rate limits a Notifier by key: repeats inside the window are
// dropped so a burst of identical failures produces one notification.
type Throttled struct {
	next   Notifier
	window time.Duration
	mu     sync.Mutex
	last   map[string]time.Time
}

// NewThrottled wraps next with a per-key rate limit.
func NewThrottled(next Notifier, window time.Duration) *Throttled {
	if next == nil {
		next = LogNotifier{}
	}
	return &Throttled{next: next, window: window, last: map[string]time.Time{}}
}

func (t *Throttled) Warn(key, message string) {
	t.mu.Lock()
	now := time.Now()
	if previous, ok := t.last[key]; ok && now.Sub(previous) < t.window {
		t.mu.Unlock()
		return
	}
	t.last[key] = now
	t.mu.Unlock()
	t.next.Warn(key, message)
}
