package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every devsync topic.
//
// Hierarchy:
//
//	devsync/{site}/devices/{kind}             peer mutation events
//	devsync/{site}/clients/{client_id}/status online/offline presence (retained)
const TopicPrefix = "devsync"

// Topics provides builders for devsync MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.DeviceEvent("default", "added")
//	// Returns: "devsync/default/devices/added"
type Topics struct{}

// DeviceEvent returns the topic for one kind of device mutation event.
func (Topics) DeviceEvent(site, kind string) string {
	return fmt.Sprintf("%s/%s/devices/%s", TopicPrefix, site, kind)
}

// AllDeviceEvents returns the wildcard matching every device event for a site.
func (Topics) AllDeviceEvents(site string) string {
	return fmt.Sprintf("%s/%s/devices/+", TopicPrefix, site)
}

// ClientStatus returns the presence topic for one client.
func (Topics) ClientStatus(site, clientID string) string {
	return fmt.Sprintf("%s/%s/clients/%s/status", TopicPrefix, site, clientID)
}

// AllClientStatus returns the wildcard matching every client's presence.
func (Topics) AllClientStatus(site string) string {
	return fmt.Sprintf("%s/%s/clients/+/status", TopicPrefix, site)
}

// ParseDeviceEvent extracts site and kind from a device event topic.
// ok is false if the topic does not have the devsync/{site}/devices/{kind} shape.
func ParseDeviceEvent(topic string) (site, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[2] != "devices" {
		return "", "", false
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[3], true
}
