package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/infrastructure/mqtt"
)

// Broker is the message bus a Channel runs over. *mqtt.Client satisfies it.
type Broker interface {
	Connect(ctx context.Context) error
	Close() error
	IsConnected() bool
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
	Subscribe(ctx context.Context, topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Handler receives validated inbound events in delivery order.
type Handler func(device.Event)

// Channel is the connection to peers for one site.
//
// It is constructed once at startup and injected into the consumers that
// need it. Connectivity is advisory: callers check IsConnected or handle
// ErrChannelUnavailable from Publish.
type Channel struct {
	broker Broker
	site   string
	qos    byte
	logger *slog.Logger

	mu      sync.Mutex
	handler Handler
}

// New creates a channel for site over broker.
func New(broker Broker, site string, qos byte, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		broker: broker,
		site:   site,
		qos:    qos,
		logger: logger,
	}
}

// Connect connects to the broker. A failure leaves the channel retrying in
// the background; callers may carry on in local-only mode.
func (c *Channel) Connect(ctx context.Context) error {
	return c.broker.Connect(ctx)
}

// Disconnect closes the broker connection.
func (c *Channel) Disconnect() error {
	return c.broker.Close()
}

// IsConnected reports whether events can currently be published.
func (c *Channel) IsConnected() bool {
	return c.broker.IsConnected()
}

// Publish sends event to peers.
func (c *Channel) Publish(ctx context.Context, event device.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if !c.broker.IsConnected() {
		return ErrChannelUnavailable
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}

	topic := mqtt.Topics{}.DeviceEvent(c.site, string(event.Kind))
	if err := c.broker.Publish(ctx, topic, payload, c.qos, false); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			return ErrChannelUnavailable
		}
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for every device event of this site.
// The subscription survives reconnects and is deferred while offline.
// Calling Subscribe again replaces the handler.
func (c *Channel) Subscribe(ctx context.Context, handler Handler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	topic := mqtt.Topics{}.AllDeviceEvents(c.site)
	if err := c.broker.Subscribe(ctx, topic, c.qos, c.receive); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Unsubscribe stops delivery of device events.
func (c *Channel) Unsubscribe(ctx context.Context) error {
	c.mu.Lock()
	c.handler = nil
	c.mu.Unlock()
	return c.broker.Unsubscribe(ctx, mqtt.Topics{}.AllDeviceEvents(c.site))
}

// receive is the broker message handler. Malformed events are dropped here
// and never reach the handler.
func (c *Channel) receive(topic string, payload []byte) error {
	event, err := Decode(c.site, topic, payload)
	if err != nil {
		c.logger.Warn("dropping invalid device event",
			"topic", topic,
			"error", err,
		)
		return nil
	}

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()

	if handler != nil {
		handler(event)
	}
	return nil
}

// Decode parses and validates an inbound event for site.
// The payload's kind must match the kind named by the topic.
func Decode(site, topic string, payload []byte) (device.Event, error) {
	topicSite, topicKind, ok := mqtt.ParseDeviceEvent(topic)
	if !ok || topicSite != site {
		return device.Event{}, fmt.Errorf("%w: unexpected topic %q", device.ErrInvalidEvent, topic)
	}
	kind, ok := device.ParseEventKind(topicKind)
	if !ok {
		return device.Event{}, fmt.Errorf("%w: unknown kind %q in topic", device.ErrInvalidEvent, topicKind)
	}

	var event device.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return device.Event{}, fmt.Errorf("%w: %w", device.ErrInvalidEvent, err)
	}
	if event.Kind != kind {
		return device.Event{}, fmt.Errorf("%w: kind %q on %s topic", device.ErrInvalidEvent, event.Kind, kind)
	}
	if err := event.Validate(); err != nil {
		return device.Event{}, err
	}
	return event, nil
}
