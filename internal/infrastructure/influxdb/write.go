package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementEvents     = "devsync_events"
	measurementCollection = "devsync_collection"
	measurementResync     = "devsync_resync"
)

// WriteSyncEvent records one sync outcome.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - op: The operation (load, create, update, delete)
//   - kind: The outcome (success, failure, remote, dropped)
//   - origin: Where the change came from (local or peer)
//
// Example:
//
//	client.WriteSyncEvent("create", "success", "local")
//	client.WriteSyncEvent("delete", "remote", "peer")
func (c *Client) WriteSyncEvent(op, kind, origin string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(syncEventPoint(op, kind, origin, time.Now()))
}

// WriteCollectionSize records the number of devices held locally.
func (c *Client) WriteCollectionSize(size int) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(collectionPoint(size, time.Now()))
}

// WriteResync records one full refresh and how long it took.
func (c *Client) WriteResync(reason string, ok bool, took time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(resyncPoint(reason, ok, took, time.Now()))
}

func syncEventPoint(op, kind, origin string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementEvents,
		map[string]string{
			"op":     op,
			"kind":   kind,
			"origin": origin,
		},
		map[string]interface{}{
			"count": 1,
		},
		ts,
	)
}

func collectionPoint(size int, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementCollection,
		nil,
		map[string]interface{}{
			"size": size,
		},
		ts,
	)
}

func resyncPoint(reason string, ok bool, took time.Duration, ts time.Time) *write.Point {
	result := "ok"
	if !ok {
		result = "failed"
	}
	return write.NewPoint(
		measurementResync,
		map[string]string{
			"reason": reason,
			"result": result,
		},
		map[string]interface{}{
			"duration_ms": took.Milliseconds(),
		},
		ts,
	)
}
