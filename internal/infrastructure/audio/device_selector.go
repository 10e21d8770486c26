package audio

import (
	"strings"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
)

// DeviceSelector is the per-platform strategy for choosing capture devices
type DeviceSelector interface {
	Platform() string

	// SelectDefaults picks the microphone and system-audio devices for a new
	// session. Either result may be nil.
	SelectDefaults(devices []entities.AudioDevice) (microphone, system *entities.AudioDevice)

	// MatchByName finds the device that should back deviceType for name
	MatchByName(devices []entities.AudioDevice, name string, deviceType entities.DeviceType) (*entities.AudioDevice, bool)
}

// NewDeviceSelector returns the strategy for a GOOS value
func NewDeviceSelector(goos string) DeviceSelector {
	switch goos {
	case "darwin":
		return darwinSelector{}
	case "windows":
		return windowsSelector{}
	default:
		return linuxSelector{}
	}
}

func matchByName(devices []entities.AudioDevice, name string) (*entities.AudioDevice, bool) {
	for i := range devices {
		if devices[i].Name == name {
			d := devices[i]
			return &d, true
		}
	}
	return nil, false
}

func firstWhere(devices []entities.AudioDevice, pred func(entities.AudioDevice) bool) *entities.AudioDevice {
	for i := range devices {
		if pred(devices[i]) {
			d := devices[i]
			return &d
		}
	}
	return nil
}

func defaultOf(devices []entities.AudioDevice, kind entities.DeviceKind) *entities.AudioDevice {
	if d := firstWhere(devices, func(d entities.AudioDevice) bool { return d.Kind == kind && d.IsDefault }); d != nil {
		return d
	}
	return firstWhere(devices, func(d entities.AudioDevice) bool { return d.Kind == kind })
}

// darwinSelector avoids Bluetooth devices: their sample rate drops when the
// headset switches to its call profile, so built-in devices are used instead.
type darwinSelector struct{}

func (darwinSelector) Platform() string { return "darwin" }

func (darwinSelector) SelectDefaults(devices []entities.AudioDevice) (*entities.AudioDevice, *entities.AudioDevice) {
	mic := overrideBluetooth(devices, defaultOf(devices, entities.DeviceKindInput), entities.DeviceKindInput)
	system := overrideBluetooth(devices, defaultOf(devices, entities.DeviceKindOutput), entities.DeviceKindOutput)
	return mic, system
}

func overrideBluetooth(devices []entities.AudioDevice, chosen *entities.AudioDevice, kind entities.DeviceKind) *entities.AudioDevice {
	if chosen == nil || !chosen.IsBluetooth() {
		return chosen
	}
	if builtIn := firstWhere(devices, func(d entities.AudioDevice) bool { return d.Kind == kind && d.IsBuiltIn() }); builtIn != nil {
		return builtIn
	}
	return chosen
}

func (darwinSelector) MatchByName(devices []entities.AudioDevice, name string, _ entities.DeviceType) (*entities.AudioDevice, bool) {
	return matchByName(devices, name)
}

// windowsSelector records system audio through loopback of the default output
type windowsSelector struct{}

func (windowsSelector) Platform() string { return "windows" }

func (windowsSelector) SelectDefaults(devices []entities.AudioDevice) (*entities.AudioDevice, *entities.AudioDevice) {
	return defaultOf(devices, entities.DeviceKindInput), defaultOf(devices, entities.DeviceKindOutput)
}

func (windowsSelector) MatchByName(devices []entities.AudioDevice, name string, _ entities.DeviceType) (*entities.AudioDevice, bool) {
	return matchByName(devices, name)
}

// linuxSelector records system audio from the PulseAudio/PipeWire monitor source
type linuxSelector struct{}

const monitorSuffix = ".monitor"

func (linuxSelector) Platform() string { return "linux" }

func (linuxSelector) SelectDefaults(devices []entities.AudioDevice) (*entities.AudioDevice, *entities.AudioDevice) {
	mic := firstWhere(devices, func(d entities.AudioDevice) bool {
		return d.Kind == entities.DeviceKindInput && d.IsDefault && !strings.HasSuffix(d.Name, monitorSuffix)
	})
	if mic == nil {
		mic = firstWhere(devices, func(d entities.AudioDevice) bool {
			return d.Kind == entities.DeviceKindInput && !strings.HasSuffix(d.Name, monitorSuffix)
		})
	}

	var system *entities.AudioDevice
	if out := defaultOf(devices, entities.DeviceKindOutput); out != nil {
		system, _ = matchByName(devices, out.Name+monitorSuffix)
	}
	if system == nil {
		system = firstWhere(devices, func(d entities.AudioDevice) bool { return strings.HasSuffix(d.Name, monitorSuffix) })
	}
	return mic, system
}

// MatchByName resolves a sink name to its monitor for the system leg
func (linuxSelector) MatchByName(devices []entities.AudioDevice, name string, deviceType entities.DeviceType) (*entities.AudioDevice, bool) {
	if deviceType == entities.DeviceTypeSystem && !strings.HasSuffix(name, monitorSuffix) {
		if d, ok := matchByName(devices, name+monitorSuffix); ok {
			return d, true
		}
	}
	return matchByName(devices, name)
}
