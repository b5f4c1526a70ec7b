package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paularlott/cli"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/feed"
	"github.com/nerrad567/devsync/internal/infrastructure/logging"
	"github.com/nerrad567/devsync/internal/resync"
)

// errAborted is returned when the user declines a confirmation prompt.
var errAborted = errors.New("aborted")

// inventoryService is what the one-shot commands need from the synchroniser.
type inventoryService interface {
	Devices() []device.Device
	Device(id string) (device.Device, bool)
	Create(ctx context.Context, draft device.Device) (device.Device, error)
	Update(ctx context.Context, d device.Device) (device.Device, error)
	Delete(ctx context.Context, id string) error
}

// session carries the I/O streams shared by all commands.
type session struct {
	in     io.Reader
	out    io.Writer
	status io.Writer

	configPath string
	logLevel   string
}

func rootCommand(in io.Reader, out, status io.Writer) *cli.Command {
	s := &session{in: in, out: out, status: status, configPath: getConfigPath()}

	return &cli.Command{
		Name:        "devsync",
		Version:     version + " (" + commit + ")",
		Usage:       "Shared device inventory client",
		Description: "View and edit a device inventory while staying in step with other users",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "config",
				Aliases:      []string{"c"},
				Usage:        "Configuration file",
				DefaultValue: s.configPath,
				AssignTo:     &s.configPath,
			},
			&cli.StringFlag{
				Name:     "log-level",
				Usage:    "Override logging.level (debug, info, warn, error)",
				AssignTo: &s.logLevel,
			},
		},
		Commands: []*cli.Command{
			s.listCommand(),
			s.addCommand(),
			s.updateCommand(),
			s.deleteCommand(),
			s.watchCommand(),
		},
	}
}

// withApp opens the app for a one-shot command, runs fn and closes it.
func (s *session) withApp(ctx context.Context, fn func(inventoryService) error) error {
	cfg, err := loadConfig(s.configPath, s.logLevel)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging, version)

	a, err := newApp(ctx, cfg, log, s.status, false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(ctx, oneShotConnectTimeout); err != nil {
		return err
	}
	return fn(a.sync)
}

func (s *session) listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List all devices",
		Description: "Load the inventory from the backend and print it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Usage: "Only show devices whose name or serial number contains this text"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.GetString("search")
			return s.withApp(ctx, func(svc inventoryService) error {
				printDevices(s.out, filterDevices(svc.Devices(), query))
				return nil
			})
		},
	}
}

func (s *session) addCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Add a new device",
		Description: "Create a device on the backend and announce it to other users",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Device name", Required: true},
			&cli.StringFlag{Name: "serial", Usage: "Serial number", Required: true},
			&cli.BoolFlag{Name: "active", Usage: "Mark the device active"},
			&cli.StringFlag{Name: "last-maintenance", Usage: "Last maintenance date or timestamp (ISO-8601)"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			draft := device.Device{
				Name:            cmd.GetString("name"),
				SerialNumber:    cmd.GetString("serial"),
				Active:          cmd.GetBool("active"),
				LastMaintenance: cmd.GetString("last-maintenance"),
			}
			return s.withApp(ctx, func(svc inventoryService) error {
				created, err := svc.Create(ctx, draft)
				if err != nil {
					return err
				}
				printDevices(s.out, []device.Device{created})
				return nil
			})
		},
	}
}

// updateFlags are the optional fields of the update command.
type updateFlags struct {
	name, serial, lastMaintenance string
	active, inactive              bool
}

// apply overlays the flags that were given onto d.
func (f updateFlags) apply(d device.Device) (device.Device, error) {
	if f.active && f.inactive {
		return d, errors.New("--active and --inactive are mutually exclusive")
	}
	if f.name != "" {
		d.Name = f.name
	}
	if f.serial != "" {
		d.SerialNumber = f.serial
	}
	if f.lastMaintenance != "" {
		d.LastMaintenance = f.lastMaintenance
	}
	switch {
	case f.active:
		d.Active = true
	case f.inactive:
		d.Active = false
	}
	return d, nil
}

func (s *session) updateCommand() *cli.Command {
	return &cli.Command{
		Name:        "update",
		Usage:       "Update a device",
		Description: "Change fields of an existing device; unspecified fields keep their value",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Device name"},
			&cli.StringFlag{Name: "serial", Usage: "Serial number"},
			&cli.BoolFlag{Name: "active", Usage: "Mark the device active"},
			&cli.BoolFlag{Name: "inactive", Usage: "Mark the device inactive"},
			&cli.StringFlag{Name: "last-maintenance", Usage: "Last maintenance date or timestamp (ISO-8601)"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")
			flags := updateFlags{
				name:            cmd.GetString("name"),
				serial:          cmd.GetString("serial"),
				lastMaintenance: cmd.GetString("last-maintenance"),
				active:          cmd.GetBool("active"),
				inactive:        cmd.GetBool("inactive"),
			}
			return s.withApp(ctx, func(svc inventoryService) error {
				return runUpdate(ctx, svc, s.out, id, flags)
			})
		},
	}
}

func runUpdate(ctx context.Context, svc inventoryService, out io.Writer, id string, flags updateFlags) error {
	current, ok := svc.Device(id)
	if !ok {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, id)
	}
	next, err := flags.apply(current)
	if err != nil {
		return err
	}
	updated, err := svc.Update(ctx, next)
	if err != nil {
		return err
	}
	printDevices(out, []device.Device{updated})
	return nil
}

func (s *session) deleteCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete",
		Usage:       "Delete a device",
		Description: "Delete a device from the backend and announce it to other users",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")
			skipPrompt := cmd.GetBool("yes")
			return s.withApp(ctx, func(svc inventoryService) error {
				return runDelete(ctx, svc, s.in, s.status, id, skipPrompt)
			})
		},
	}
}

func runDelete(ctx context.Context, svc inventoryService, in io.Reader, prompt io.Writer, id string, skipPrompt bool) error {
	if !skipPrompt {
		what := id
		if d, ok := svc.Device(id); ok {
			what = fmt.Sprintf("%s (%s)", d.Name, d.SerialNumber)
		}
		if !confirm(in, prompt, "Delete "+what+"?") {
			return errAborted
		}
	}
	return svc.Delete(ctx, id)
}

// confirm asks a yes/no question; anything but y/yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (s *session) watchCommand() *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Usage:       "Follow the inventory",
		Description: "Stay connected, apply other users' changes and serve the read-only feed",
		Run: func(ctx context.Context, _ *cli.Command) error {
			return s.watch(ctx)
		},
	}
}

func (s *session) watch(ctx context.Context) error {
	cfg, err := loadConfig(s.configPath, s.logLevel)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging, version)
	log.Info("starting devsync watch", "version", version, "commit", commit, "site", cfg.Site.ID)

	a, err := newApp(ctx, cfg, log, s.status, true)
	if err != nil {
		return err
	}
	defer a.close()

	scheduler, err := resync.New(cfg.Resync.Schedule, a.sync, log)
	if err != nil {
		return err
	}
	if a.influx != nil {
		scheduler.SetRecorder(a.influx)
	}
	if cfg.Resync.OnReconnect {
		a.mqtt.SetOnConnect(func() {
			log.Info("MQTT connected, refreshing inventory")
			scheduler.Trigger("reconnect")
		})
	}

	if err := a.start(ctx, 0); err != nil {
		log.Warn("initial load failed", "error", err)
	}
	log.Info("inventory loaded", "devices", a.sync.Count(), "connected", a.sync.Connected())

	scheduler.Start(ctx)
	defer scheduler.Stop()

	if cfg.Feed.Enabled {
		checks := map[string]feed.HealthCheck{"mqtt": a.mqtt.HealthCheck}
		if a.influx != nil {
			checks["influxdb"] = a.influx.HealthCheck
		}
		srv, err := feed.New(feed.Deps{
			Config:  cfg.Feed,
			Logger:  log,
			Source:  a.sync,
			Version: version,
			Checks:  checks,
		})
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Error("error closing feed server", "error", err)
			}
		}()
		a.broadcaster.Add(srv)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}
