package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/devsync/internal/backend"
	"github.com/nerrad567/devsync/internal/hub"
	"github.com/nerrad567/devsync/internal/infrastructure/config"
	"github.com/nerrad567/devsync/internal/infrastructure/influxdb"
	"github.com/nerrad567/devsync/internal/infrastructure/logging"
	"github.com/nerrad567/devsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/devsync/internal/inventory"
)

// oneShotConnectTimeout bounds how long a one-shot command waits for the
// broker before carrying on without peer announcements.
const oneShotConnectTimeout = 3 * time.Second

// app holds the wired components for one command invocation.
type app struct {
	cfg         *config.Config
	log         *logging.Logger
	sync        *inventory.Synchronizer
	broadcaster *inventory.Broadcaster
	mqtt        *mqtt.Client
	influx      *influxdb.Client
}

// loadConfig reads the config file and applies the --log-level override.
func loadConfig(path, logLevel string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newApp wires the backend client, the MQTT-backed channel, optional
// telemetry and the synchroniser. Notifications are written to status.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger, status io.Writer, showLoads bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	backendClient := backend.New(cfg.Backend.BaseURL, cfg.GetBackendTimeout())

	a.mqtt = mqtt.New(cfg.MQTT, cfg.Site.ID)
	a.mqtt.SetLogger(log)
	a.mqtt.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	channel := hub.New(a.mqtt, cfg.Site.ID, byte(cfg.MQTT.QoS), log.Logger)

	a.broadcaster = inventory.NewBroadcaster(&printer{w: status, showLoads: showLoads})
	a.sync = inventory.New(backendClient, channel, a.broadcaster, log)

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		a.influx = influxClient
		a.sync.SetRecorder(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	return a, nil
}

// start connects the channel, waiting at most timeout (0 means no limit
// beyond the client's own), then loads the inventory.
func (a *app) start(ctx context.Context, timeout time.Duration) error {
	connectCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := a.sync.Start(connectCtx); err != nil {
		return err
	}
	a.log.Debug("synchroniser started", "origin", a.sync.Origin(), "connected", a.sync.Connected())

	return a.sync.LoadAll(ctx)
}

// close releases everything newApp acquired, in reverse order.
func (a *app) close() {
	if err := a.sync.Stop(); err != nil {
		a.log.Error("error stopping synchroniser", "error", err)
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.log.Error("error closing InfluxDB", "error", err)
		}
	}
}
