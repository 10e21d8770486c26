package entities

import (
	"strings"
	"time"
)

// DeviceKind is the capability reported by device enumeration
type DeviceKind string

const (
	DeviceKindInput  DeviceKind = "input"
	DeviceKindOutput DeviceKind = "output"
)

// AudioDevice is a device as reported by the enumeration layer
type AudioDevice struct {
	Name      string     `json:"name" validate:"required"`
	Kind      DeviceKind `json:"kind" validate:"oneof=input output"`
	IsDefault bool       `json:"is_default"`
	Transport string     `json:"transport,omitempty"` // "bluetooth", "builtin", "usb", ...
}

// IsBluetooth checks the transport, then falls back to well-known names
func (d AudioDevice) IsBluetooth() bool {
	if strings.EqualFold(d.Transport, "bluetooth") {
		return true
	}
	name := strings.ToLower(d.Name)
	for _, hint := range []string{"bluetooth", "airpods", "beats", "bose", "sony wh", "galaxy buds"} {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

// IsBuiltIn checks whether the device is wired into the machine itself
func (d AudioDevice) IsBuiltIn() bool {
	if strings.EqualFold(d.Transport, "builtin") {
		return true
	}
	name := strings.ToLower(d.Name)
	return strings.Contains(name, "built-in") || strings.Contains(name, "macbook")
}

// DeviceEventKind enumerates monitor events
type DeviceEventKind string

const (
	DeviceEventDisconnected DeviceEventKind = "disconnected"
	DeviceEventReconnected  DeviceEventKind = "reconnected"
)

// DeviceEvent is emitted by the device monitor
type DeviceEvent struct {
	Kind       DeviceEventKind `json:"kind"`
	DeviceName string          `json:"device_name"`
	DeviceType DeviceType      `json:"device_type"`
	At         time.Time       `json:"at"`
}
