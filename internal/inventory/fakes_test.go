package inventory

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/nerrad567/devsync/internal/backend"
	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/hub"
)

// fakeBackend is an in-memory device service assigning sequential IDs.
type fakeBackend struct {
	mu      sync.Mutex
	records []device.Device
	nextID  int
	calls   map[string]int
	failOn  map[string]error
}

func newFakeBackend(initial ...device.Device) *fakeBackend {
	return &fakeBackend{
		records: append([]device.Device(nil), initial...),
		nextID:  100,
		calls:   make(map[string]int),
		failOn:  make(map[string]error),
	}
}

func (b *fakeBackend) fail(op string) {
	b.mu.Lock()
	b.failOn[op] = &backend.RequestFailure{Op: op, StatusCode: 200, Message: "unsuccessful response"}
	b.mu.Unlock()
}

func (b *fakeBackend) callCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) start(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
	return b.failOn[op]
}

func (b *fakeBackend) GetAll(context.Context) ([]device.Device, error) {
	if err := b.start(backend.OpGetAll); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]device.Device(nil), b.records...), nil
}

func (b *fakeBackend) Create(_ context.Context, draft device.Device) (device.Device, error) {
	if err := b.start(backend.OpCreate); err != nil {
		return device.Device{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	draft.ID = strconv.Itoa(b.nextID)
	b.records = append(b.records, draft)
	return draft, nil
}

func (b *fakeBackend) Update(_ context.Context, d device.Device) (device.Device, error) {
	if err := b.start(backend.OpUpdate); err != nil {
		return device.Device{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if b.records[i].ID == d.ID {
			b.records[i] = d
		}
	}
	return d, nil
}

func (b *fakeBackend) Delete(_ context.Context, id string) error {
	if err := b.start(backend.OpDelete); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.records {
		if b.records[i].ID == id {
			b.records = append(b.records[:i], b.records[i+1:]...)
			break
		}
	}
	return nil
}

// bus is an in-memory broker shared by fakeChannels. Like MQTT, it delivers
// every publish to all subscribers including the publisher.
type bus struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (b *bus) deliver(event device.Event) {
	b.mu.Lock()
	channels := append([]*fakeChannel(nil), b.channels...)
	b.mu.Unlock()

	for _, ch := range channels {
		ch.receive(event)
	}
}

// fakeChannel records publishes and optionally forwards them to a bus.
type fakeChannel struct {
	mu          sync.Mutex
	bus         *bus
	connected   bool
	connectErr  error
	publishErr  error
	published   []device.Event
	handler     hub.Handler
	disconnects int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{connected: true}
}

func (b *bus) join() *fakeChannel {
	ch := newFakeChannel()
	ch.bus = b
	b.mu.Lock()
	b.channels = append(b.channels, ch)
	b.mu.Unlock()
	return ch
}

func (c *fakeChannel) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeChannel) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
	return nil
}

func (c *fakeChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeChannel) Publish(_ context.Context, event device.Event) error {
	c.mu.Lock()
	if c.publishErr != nil {
		err := c.publishErr
		c.mu.Unlock()
		return err
	}
	if !c.connected {
		c.mu.Unlock()
		return hub.ErrChannelUnavailable
	}
	c.published = append(c.published, event)
	b := c.bus
	c.mu.Unlock()

	if b != nil {
		b.deliver(event)
	}
	return nil
}

func (c *fakeChannel) Subscribe(_ context.Context, handler hub.Handler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) receive(event device.Event) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(event)
	}
}

func (c *fakeChannel) events() []device.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]device.Event(nil), c.published...)
}

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *recorder) ofKind(kind Kind) []Notification {
	var out []Notification
	for _, n := range r.all() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

type telemetryPoint struct {
	op, kind, origin string
}

// fakeTelemetry implements Recorder.
type fakeTelemetry struct {
	mu     sync.Mutex
	events []telemetryPoint
	sizes  []int
}

func (f *fakeTelemetry) WriteSyncEvent(op, kind, origin string) {
	f.mu.Lock()
	f.events = append(f.events, telemetryPoint{op, kind, origin})
	f.mu.Unlock()
}

func (f *fakeTelemetry) WriteCollectionSize(size int) {
	f.mu.Lock()
	f.sizes = append(f.sizes, size)
	f.mu.Unlock()
}

var errBoom = errors.New("boom")
