package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/hub"
)

// Backend is the request/response service the Synchronizer mutates through.
// *backend.Client satisfies it.
type Backend interface {
	GetAll(ctx context.Context) ([]device.Device, error)
	Create(ctx context.Context, draft device.Device) (device.Device, error)
	Update(ctx context.Context, d device.Device) (device.Device, error)
	Delete(ctx context.Context, id string) error
}

// Channel is the publish/subscribe connection to peers.
// *hub.Channel satisfies it.
type Channel interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Publish(ctx context.Context, event device.Event) error
	Subscribe(ctx context.Context, handler hub.Handler) error
}

// Recorder receives sync telemetry. The InfluxDB client satisfies it.
type Recorder interface {
	WriteSyncEvent(op, kind, origin string)
	WriteCollectionSize(size int)
}

// Logger is the logging interface the Synchronizer needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Origins reported to the Recorder.
const (
	originLocal = "local"
	originPeer  = "peer"

	// kindDropped marks a publish lost because the channel was down.
	kindDropped = "dropped"
)

// Synchronizer reconciles the local device collection with the backend and peers.
//
// The collection is changed in a single critical section per operation and
// only after the backend confirmed the request, so a failed operation never
// leaves a partial change behind. Publishing happens after that change.
//
// Thread Safety: All methods are safe for concurrent use.
type Synchronizer struct {
	backend  Backend
	channel  Channel
	notifier Notifier
	recorder Recorder
	logger   Logger
	origin   string
	now      func() time.Time

	devices *device.Collection
}

// New creates a Synchronizer.
//
// Parameters:
//   - backend: REST service for all mutations (required)
//   - channel: Peer channel (may be nil for local-only operation)
//   - notifier: Receives user-facing notifications (may be nil)
//   - logger: Logger instance (may be nil)
func New(backend Backend, channel Channel, notifier Notifier, logger Logger) *Synchronizer {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Synchronizer{
		backend:  backend,
		channel:  channel,
		notifier: notifier,
		logger:   logger,
		origin:   uuid.NewString(),
		now:      time.Now,
		devices:  device.NewCollection(),
	}
}

// SetRecorder enables telemetry. Call before Start.
func (s *Synchronizer) SetRecorder(r Recorder) {
	s.recorder = r
}

// Origin returns the instance ID stamped on every event this Synchronizer publishes.
func (s *Synchronizer) Origin() string {
	return s.origin
}

// Start subscribes to peer events and connects the channel.
//
// A connection failure is logged and the Synchronizer keeps working in
// local-only mode while the channel retries in the background. Only a
// failure to register the subscription is returned.
func (s *Synchronizer) Start(ctx context.Context) error {
	if s.channel == nil {
		s.logger.Info("no peer channel configured, running local-only")
		return nil
	}

	if err := s.channel.Subscribe(ctx, s.HandleEvent); err != nil {
		return fmt.Errorf("subscribing to peer events: %w", err)
	}

	if err := s.channel.Connect(ctx); err != nil {
		s.logger.Warn("peer channel unavailable, running local-only until it reconnects",
			"error", err,
		)
		return nil
	}

	s.logger.Info("peer channel connected", "origin", s.origin)
	return nil
}

// Stop disconnects the channel.
func (s *Synchronizer) Stop() error {
	if s.channel == nil {
		return nil
	}
	return s.channel.Disconnect()
}

// Connected reports whether peer sync is currently available.
func (s *Synchronizer) Connected() bool {
	return s.channel != nil && s.channel.IsConnected()
}

// ─── Local operations ──────────────────────────────────────────────────────

// LoadAll replaces the whole collection with the backend's device set.
// On failure the collection is left as it was.
func (s *Synchronizer) LoadAll(ctx context.Context) error {
	devices, err := s.backend.GetAll(ctx)
	if err != nil {
		s.fail(OpLoad, device.Device{}, err)
		return err
	}

	s.devices.Replace(devices)

	s.notify(Notification{
		Kind:    KindSuccess,
		Op:      OpLoad,
		Message: fmt.Sprintf("Loaded %d devices", s.devices.Len()),
	}, originLocal)
	return nil
}

// Create validates draft, asks the backend to create it and appends the
// canonical record the backend returns. The record is upserted in case a
// peer event for it arrived first.
//
// Returns *device.ValidationError without issuing a request when the draft
// is incomplete.
func (s *Synchronizer) Create(ctx context.Context, draft device.Device) (device.Device, error) {
	draft = device.Normalize(draft)
	if err := device.ValidateDraft(draft); err != nil {
		s.fail(OpCreate, draft, err)
		return device.Device{}, err
	}

	created, err := s.backend.Create(ctx, draft)
	if err != nil {
		s.fail(OpCreate, draft, err)
		return device.Device{}, err
	}

	s.devices.Upsert(created)
	s.publish(ctx, device.AddedEvent(created, s.origin))

	s.notify(Notification{
		Kind:       KindSuccess,
		Op:         OpCreate,
		DeviceID:   created.ID,
		DeviceName: created.Name,
		Message:    fmt.Sprintf("Device %s added", created.Name),
	}, originLocal)
	return created, nil
}

// Update validates d, sends the full record to the backend and replaces the
// local entry. A record not present locally is inserted.
func (s *Synchronizer) Update(ctx context.Context, d device.Device) (device.Device, error) {
	d = device.Normalize(d)
	if err := device.ValidateRecord(d); err != nil {
		s.fail(OpUpdate, d, err)
		return device.Device{}, err
	}

	updated, err := s.backend.Update(ctx, d)
	if err != nil {
		s.fail(OpUpdate, d, err)
		return device.Device{}, err
	}

	s.devices.Upsert(updated)
	s.publish(ctx, device.UpdatedEvent(updated, s.origin))

	s.notify(Notification{
		Kind:       KindSuccess,
		Op:         OpUpdate,
		DeviceID:   updated.ID,
		DeviceName: updated.Name,
		Message:    fmt.Sprintf("Device %s updated", updated.Name),
	}, originLocal)
	return updated, nil
}

// Delete asks the backend to delete id and removes the local entry.
// Removing an entry that is not present locally is a no-op.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	if id == "" {
		err := &device.ValidationError{Fields: []device.FieldError{{Field: device.FieldID, Message: "is required"}}}
		s.fail(OpDelete, device.Device{}, err)
		return err
	}

	existing, _ := s.devices.Get(id)
	existing.ID = id

	if err := s.backend.Delete(ctx, id); err != nil {
		s.fail(OpDelete, existing, err)
		return err
	}

	s.devices.Remove(id)
	s.publish(ctx, device.DeletedEvent(id, s.origin))

	s.notify(Notification{
		Kind:       KindSuccess,
		Op:         OpDelete,
		DeviceID:   id,
		DeviceName: existing.Name,
		Message:    fmt.Sprintf("Device %s deleted", label(existing)),
	}, originLocal)
	return nil
}

// ─── Peer events ───────────────────────────────────────────────────────────

// HandleEvent applies a peer event. Invalid events and events published by
// this instance are dropped.
func (s *Synchronizer) HandleEvent(event device.Event) {
	if err := event.Validate(); err != nil {
		s.logger.Warn("dropping invalid peer event", "error", err)
		return
	}
	if event.Origin != "" && event.Origin == s.origin {
		s.logger.Debug("dropping own event echo",
			"event", event.Kind.Name(),
			"device_id", event.DeviceID(),
		)
		return
	}

	switch event.Kind {
	case device.EventAdded:
		s.OnRemoteAdded(*event.Device)
	case device.EventUpdated:
		s.OnRemoteUpdated(*event.Device)
	case device.EventDeleted:
		s.OnRemoteDeleted(event.ID)
	}
}

// OnRemoteAdded inserts a device created by a peer. A record with the same
// ID is replaced.
func (s *Synchronizer) OnRemoteAdded(d device.Device) {
	if d.ID == "" {
		return
	}
	s.devices.Upsert(d)

	s.notify(Notification{
		Kind:       KindRemote,
		Op:         OpCreate,
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Message:    fmt.Sprintf("Device %s was added by another user", d.Name),
	}, originPeer)
}

// OnRemoteUpdated replaces a device changed by a peer. An unknown ID is
// inserted.
func (s *Synchronizer) OnRemoteUpdated(d device.Device) {
	if d.ID == "" {
		return
	}
	s.devices.Upsert(d)

	s.notify(Notification{
		Kind:       KindRemote,
		Op:         OpUpdate,
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Message:    fmt.Sprintf("Device %s was updated by another user", d.Name),
	}, originPeer)
}

// OnRemoteDeleted removes a device deleted by a peer. An ID that is not
// present is ignored without notification.
func (s *Synchronizer) OnRemoteDeleted(id string) {
	existing, _ := s.devices.Get(id)
	if !s.devices.Remove(id) {
		return
	}
	existing.ID = id

	s.notify(Notification{
		Kind:       KindRemote,
		Op:         OpDelete,
		DeviceID:   id,
		DeviceName: existing.Name,
		Message:    fmt.Sprintf("Device %s was deleted by another user", label(existing)),
	}, originPeer)
}

// ─── Reads ─────────────────────────────────────────────────────────────────

// Devices returns a copy of the collection in order.
func (s *Synchronizer) Devices() []device.Device {
	return s.devices.Snapshot()
}

// Device returns the record with the given ID.
func (s *Synchronizer) Device(id string) (device.Device, bool) {
	return s.devices.Get(id)
}

// Count returns the number of records.
func (s *Synchronizer) Count() int {
	return s.devices.Len()
}

// ─── Helpers ───────────────────────────────────────────────────────────────

// publish sends event to peers. Failures never fail the local operation:
// an unavailable channel is expected and only counted, anything else is logged.
func (s *Synchronizer) publish(ctx context.Context, event device.Event) {
	if s.channel == nil {
		return
	}

	err := hub.ErrChannelUnavailable
	if s.channel.IsConnected() {
		err = s.channel.Publish(ctx, event)
	}

	switch {
	case err == nil:
		return
	case errors.Is(err, hub.ErrChannelUnavailable):
		s.logger.Debug("peer channel unavailable, event not published",
			"event", event.Kind.Name(),
			"device_id", event.DeviceID(),
		)
		if s.recorder != nil {
			s.recorder.WriteSyncEvent(string(opFor(event.Kind)), kindDropped, originLocal)
		}
	default:
		s.logger.Warn("publishing event failed",
			"event", event.Kind.Name(),
			"device_id", event.DeviceID(),
			"error", err,
		)
	}
}

func (s *Synchronizer) fail(op Op, d device.Device, err error) {
	s.logger.Warn("device operation failed",
		"op", op,
		"device_id", d.ID,
		"error", err,
	)
	s.notify(Notification{
		Kind:       KindFailure,
		Op:         op,
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Message:    failureMessage(op, err),
		Err:        err,
	}, originLocal)
}

func (s *Synchronizer) notify(n Notification, origin string) {
	n.At = s.now()
	s.notifier.Notify(n)

	if s.recorder != nil {
		s.recorder.WriteSyncEvent(string(n.Op), string(n.Kind), origin)
		if n.Kind != KindFailure {
			s.recorder.WriteCollectionSize(s.devices.Len())
		}
	}
}

func failureMessage(op Op, err error) string {
	var verb string
	switch op {
	case OpLoad:
		verb = "load devices"
	case OpCreate:
		verb = "add device"
	case OpUpdate:
		verb = "update device"
	case OpDelete:
		verb = "delete device"
	}

	var verr *device.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Could not %s: %s", verb, verr.Summary())
	}
	return fmt.Sprintf("Could not %s: %v", verb, err)
}

func opFor(kind device.EventKind) Op {
	switch kind {
	case device.EventAdded:
		return OpCreate
	case device.EventUpdated:
		return OpUpdate
	default:
		return OpDelete
	}
}

// label names a device for messages, falling back to its ID.
func label(d device.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
