package inventory

import (
	"sync"
	"time"
)

// Kind classifies a Notification.
type Kind string

// Notification kinds.
const (
	// KindSuccess reports a confirmed local operation.
	KindSuccess Kind = "success"

	// KindFailure reports a local operation that was rejected or failed.
	KindFailure Kind = "failure"

	// KindRemote reports a change made by another user.
	KindRemote Kind = "remote"
)

// Op names the operation a Notification refers to.
type Op string

// Operations.
const (
	OpLoad   Op = "load"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Notification is a user-facing outcome of one operation or peer event.
type Notification struct {
	Kind       Kind      `json:"kind"`
	Op         Op        `json:"op"`
	DeviceID   string    `json:"device_id,omitempty"`
	DeviceName string    `json:"device_name,omitempty"`
	Message    string    `json:"message"`
	Err        error     `json:"-"`
	At         time.Time `json:"at"`
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// Broadcaster fans notifications out to every registered Notifier.
//
// Thread Safety: All methods are safe for concurrent use.
type Broadcaster struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewBroadcaster creates a broadcaster with the given initial notifiers.
func NewBroadcaster(notifiers ...Notifier) *Broadcaster {
	return &Broadcaster{notifiers: append([]Notifier(nil), notifiers...)}
}

// Add registers n. Nil is ignored.
func (b *Broadcaster) Add(n Notifier) {
	if n == nil {
		return
	}
	b.mu.Lock()
	b.notifiers = append(b.notifiers, n)
	b.mu.Unlock()
}

// Notify delivers n to every registered notifier in registration order.
func (b *Broadcaster) Notify(n Notification) {
	b.mu.RLock()
	notifiers := b.notifiers
	b.mu.RUnlock()

	for _, target := range notifiers {
		target.Notify(n)
	}
}
