// Package hub is the publish/subscribe adapter carrying device events
// between peers.
//
// A Channel encodes device.Event values as JSON on per-kind MQTT topics:
//
//	devsync/{site}/devices/added    DeviceAdded(Device)
//	devsync/{site}/devices/updated  DeviceUpdated(Device)
//	devsync/{site}/devices/deleted  DeviceDeleted(id)
//
// Inbound messages are decoded and validated before the handler sees them;
// a payload whose kind disagrees with its topic, or that fails
// Event.Validate, is logged and dropped.
//
// Publishing is fire-and-forget. While the broker is unreachable Publish
// returns ErrChannelUnavailable and nothing is buffered.
package hub
