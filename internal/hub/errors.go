package hub

import "errors"

var (
	// ErrChannelUnavailable is returned by Publish while disconnected.
	ErrChannelUnavailable = errors.New("hub: channel unavailable")

	// ErrPublishFailed is returned when the broker rejects a publish.
	ErrPublishFailed = errors.New("hub: publish failed")

	// ErrSubscribeFailed is returned when the event subscription cannot be made.
	ErrSubscribeFailed = errors.New("hub: subscribe failed")
)
