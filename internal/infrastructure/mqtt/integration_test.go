//go:build integration

package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/devsync/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectIntegration(t *testing.T) *Client {
	t.Helper()
	client := New(integrationConfig(), "int-test")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// TestIntegration_MessageRoundtrip verifies pub/sub works end-to-end.
func TestIntegration_MessageRoundtrip(t *testing.T) {
	pub := connectIntegration(t)
	sub := connectIntegration(t)
	ctx := context.Background()

	topic := Topics{}.DeviceEvent("int-test", "added")
	expected := `{"kind":"added"}`

	received := make(chan string, 1)
	var once sync.Once

	err := sub.Subscribe(ctx, Topics{}.AllDeviceEvents("int-test"), 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := pub.Publish(ctx, topic, []byte(expected), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != expected {
			t.Errorf("Received = %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

// TestIntegration_OwnPublishEchoed verifies the broker delivers a client's
// own publishes back to it, which is why events carry an origin.
func TestIntegration_OwnPublishEchoed(t *testing.T) {
	client := connectIntegration(t)
	ctx := context.Background()

	received := make(chan struct{}, 1)
	err := client.Subscribe(ctx, Topics{}.AllDeviceEvents("int-test"), 1, func(string, []byte) error {
		select {
		case received <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(ctx, Topics{}.DeviceEvent("int-test", "deleted"), []byte(`{}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Error("own publish was not echoed back")
	}
}
