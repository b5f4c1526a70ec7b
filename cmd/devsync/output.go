package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/inventory"
)

// printDevices writes devices as an aligned table.
func printDevices(w io.Writer, devices []device.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSERIAL\tACTIVE\tLAST MAINTENANCE")
	for _, d := range devices {
		last := d.LastMaintenance
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.SerialNumber, yesNo(d.Active), last)
	}
	tw.Flush()
}

// filterDevices keeps the devices whose name or serial number contains
// query, ignoring case. An empty query keeps everything.
func filterDevices(devices []device.Device, query string) []device.Device {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return devices
	}

	var matched []device.Device
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), query) ||
			strings.Contains(strings.ToLower(d.SerialNumber), query) {
			matched = append(matched, d)
		}
	}
	return matched
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// printer shows notifications to the user.
type printer struct {
	w         io.Writer
	showLoads bool
}

func (p *printer) Notify(n inventory.Notification) {
	if n.Op == inventory.OpLoad && n.Kind == inventory.KindSuccess && !p.showLoads {
		return
	}

	var mark string
	switch n.Kind {
	case inventory.KindSuccess:
		mark = "ok"
	case inventory.KindFailure:
		mark = "error"
	case inventory.KindRemote:
		mark = "peer"
	}
	fmt.Fprintf(p.w, "[%s] %s\n", mark, n.Message)
}
