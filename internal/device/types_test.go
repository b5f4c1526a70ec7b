package device

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "added", event: AddedEvent(Device{ID: "1"}, "o"), wantErr: false},
		{name: "updated", event: UpdatedEvent(Device{ID: "1"}, "o"), wantErr: false},
		{name: "deleted", event: DeletedEvent("1", "o"), wantErr: false},
		{name: "added without device", event: Event{Kind: EventAdded}, wantErr: true},
		{name: "added without id", event: AddedEvent(Device{Name: "x"}, "o"), wantErr: true},
		{name: "updated without device", event: Event{Kind: EventUpdated, ID: "1"}, wantErr: true},
		{name: "deleted without id", event: Event{Kind: EventDeleted}, wantErr: true},
		{name: "unknown kind", event: Event{Kind: "renamed", ID: "1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Validate() error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestEvent_DeviceID(t *testing.T) {
	if got := AddedEvent(Device{ID: "7"}, "").DeviceID(); got != "7" {
		t.Errorf("added DeviceID() = %q", got)
	}
	if got := DeletedEvent("8", "").DeviceID(); got != "8" {
		t.Errorf("deleted DeviceID() = %q", got)
	}
	if got := (Event{Kind: EventUpdated}).DeviceID(); got != "" {
		t.Errorf("empty updated DeviceID() = %q", got)
	}
}

func TestEventKind_Name(t *testing.T) {
	want := map[EventKind]string{
		EventAdded:   "DeviceAdded",
		EventUpdated: "DeviceUpdated",
		EventDeleted: "DeviceDeleted",
	}
	for _, k := range AllEventKinds() {
		if k.Name() != want[k] {
			t.Errorf("%q.Name() = %q, want %q", k, k.Name(), want[k])
		}
	}
}

func TestParseEventKind(t *testing.T) {
	for _, k := range AllEventKinds() {
		if got, ok := ParseEventKind(string(k)); !ok || got != k {
			t.Errorf("ParseEventKind(%q) = %q, %v", k, got, ok)
		}
	}
	for _, s := range []string{"", "renamed", "Added", "DeviceAdded"} {
		if _, ok := ParseEventKind(s); ok {
			t.Errorf("ParseEventKind(%q) ok = true, want false", s)
		}
	}
}

func TestDevice_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Device{ID: "9", Name: "Sensor", SerialNumber: "SN-42", Active: true})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"id", "name", "serialNumber", "active"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("encoded device missing %q: %s", key, data)
		}
	}
	if _, ok := raw["isDeleted"]; ok {
		t.Errorf("isDeleted should be omitted when false: %s", data)
	}
}
