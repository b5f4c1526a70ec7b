// Package influxdb provides InfluxDB connectivity for devsync telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, sync event writing, and health monitoring.
//
// # Measurements
//
//	devsync_events      tags op, kind, origin, site   field count=1
//	devsync_collection  tag site                      field size
//	devsync_resync      tags reason, result, site     field duration_ms
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSyncEvent("create", "success", "local")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a callback.
// Connection and health check errors are returned directly.
package influxdb
