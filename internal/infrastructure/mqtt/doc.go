// Package mqtt provides MQTT client connectivity for devsync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS validation and a payload size cap
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) so peers can see a client vanish
//   - Connection state for callers that must not publish while offline
//
// # Architecture
//
// The broker is the notification channel between inventory clients. Each
// client publishes its own mutations and subscribes to everyone's:
//
//	devsync client A ↔ MQTT Broker ↔ devsync client B
//
// # Degraded Mode
//
// Connect is best-effort. If the broker is unreachable it returns
// ErrConnectionFailed but paho keeps retrying in the background; any
// subscription registered meanwhile is established once the connection
// comes up. Publish returns ErrNotConnected while offline and never buffers.
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT, cfg.Site.ID)
//	if err := client.Connect(ctx); err != nil {
//	    log.Warn("running local-only", "error", err)
//	}
//	defer client.Close()
//
//	err := client.Subscribe(mqtt.Topics{}.AllDeviceEvents("default"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
