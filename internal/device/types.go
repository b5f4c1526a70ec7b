package device

import "fmt"

// Device is one inventory record as exchanged with the REST backend and peers.
type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber"`
	Active       bool   `json:"active"`

	// LastMaintenance is an ISO-8601 date or timestamp, empty when unknown.
	LastMaintenance string `json:"lastMaintenance,omitempty"`

	// IsDeleted is the backend's soft-delete flag. It is carried through
	// unchanged but never shown to users.
	IsDeleted bool `json:"isDeleted,omitempty"`
}

// String returns a short human-readable label.
func (d Device) String() string {
	if d.ID == "" {
		return fmt.Sprintf("%s (%s)", d.Name, d.SerialNumber)
	}
	return fmt.Sprintf("%s (%s) [%s]", d.Name, d.SerialNumber, d.ID)
}

// EventKind discriminates the Event variant.
type EventKind string

// Event kinds.
const (
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// AllEventKinds returns every valid event kind.
func AllEventKinds() []EventKind {
	return []EventKind{EventAdded, EventUpdated, EventDeleted}
}

// ParseEventKind maps a wire kind ("added", "updated", "deleted") to its
// EventKind.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range AllEventKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Name returns the wire event name (DeviceAdded, DeviceUpdated, DeviceDeleted).
func (k EventKind) Name() string {
	switch k {
	case EventAdded:
		return "DeviceAdded"
	case EventUpdated:
		return "DeviceUpdated"
	case EventDeleted:
		return "DeviceDeleted"
	default:
		return string(k)
	}
}

// Event is a mutation notification exchanged between peers.
//
// Added and Updated carry the canonical Device; Deleted carries only the ID.
// Origin is the instance ID of the publishing client and lets a client drop
// its own echoes.
type Event struct {
	Kind   EventKind `json:"kind"`
	Device *Device   `json:"device,omitempty"`
	ID     string    `json:"id,omitempty"`
	Origin string    `json:"origin,omitempty"`
}

// AddedEvent builds a DeviceAdded event.
func AddedEvent(d Device, origin string) Event {
	return Event{Kind: EventAdded, Device: &d, Origin: origin}
}

// UpdatedEvent builds a DeviceUpdated event.
func UpdatedEvent(d Device, origin string) Event {
	return Event{Kind: EventUpdated, Device: &d, Origin: origin}
}

// DeletedEvent builds a DeviceDeleted event.
func DeletedEvent(id, origin string) Event {
	return Event{Kind: EventDeleted, ID: id, Origin: origin}
}

// DeviceID returns the ID the event refers to, whatever its kind.
func (e Event) DeviceID() string {
	if e.Kind == EventDeleted {
		return e.ID
	}
	if e.Device != nil {
		return e.Device.ID
	}
	return ""
}

// Validate checks that the event is a well-formed variant.
func (e Event) Validate() error {
	switch e.Kind {
	case EventAdded, EventUpdated:
		if e.Device == nil {
			return fmt.Errorf("%w: %s without device", ErrInvalidEvent, e.Kind.Name())
		}
		if e.Device.ID == "" {
			return fmt.Errorf("%w: %s device has no id", ErrInvalidEvent, e.Kind.Name())
		}
	case EventDeleted:
		if e.ID == "" {
			return fmt.Errorf("%w: %s without id", ErrInvalidEvent, e.Kind.Name())
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}
