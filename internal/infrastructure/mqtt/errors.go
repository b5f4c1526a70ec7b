package mqtt

import "errors"

// Connection state.
var (
	// ErrConnectionFailed wraps the cause when Connect gives up waiting.
	// Paho keeps retrying in the background after it is returned.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrNotConnected is returned by Publish and HealthCheck while offline.
	// Callers treat it as "peers unreachable", not as a fault.
	ErrNotConnected = errors.New("mqtt: client not connected")
)

// Argument and broker errors.
var (
	ErrInvalidTopic      = errors.New("mqtt: topic cannot be empty")
	ErrInvalidQoS        = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)
