package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
)

// CommandRunner runs a helper binary and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// NewDeviceLister returns the enumeration backend for goos
func NewDeviceLister(goos string) repositories.DeviceLister {
	if goos == "linux" {
		return NewPulseLister(nil)
	}
	return StaticLister{Devices: []entities.AudioDevice{
		{Name: "default", Kind: entities.DeviceKindInput, IsDefault: true},
	}}
}

// PulseLister enumerates PulseAudio/PipeWire sources and sinks through pactl
type PulseLister struct {
	run CommandRunner
}

// NewPulseLister creates a lister; a nil runner executes pactl directly
func NewPulseLister(run CommandRunner) *PulseLister {
	if run == nil {
		run = execRunner
	}
	return &PulseLister{run: run}
}

// ListDevices reports sources (monitors included) as inputs and sinks as outputs
func (l *PulseLister) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	sources, err := l.run(ctx, "pactl", "list", "short", "sources")
	if err != nil {
		return nil, err
	}
	sinks, err := l.run(ctx, "pactl", "list", "short", "sinks")
	if err != nil {
		return nil, err
	}

	// defaults are optional on older pactl versions
	defSource, _ := l.run(ctx, "pactl", "get-default-source")
	defSink, _ := l.run(ctx, "pactl", "get-default-sink")

	devices := ParsePactlShort(sources, entities.DeviceKindInput, strings.TrimSpace(string(defSource)))
	devices = append(devices, ParsePactlShort(sinks, entities.DeviceKindOutput, strings.TrimSpace(string(defSink)))...)
	return devices, nil
}

// ParsePactlShort parses `pactl list short` output. Columns are tab separated,
// the second one is the device name.
func ParsePactlShort(out []byte, kind entities.DeviceKind, defaultName string) []entities.AudioDevice {
	var devices []entities.AudioDevice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimSpace(fields[1])
		if name == "" {
			continue
		}
		devices = append(devices, entities.AudioDevice{
			Name:      name,
			Kind:      kind,
			IsDefault: name == defaultName,
			Transport: pulseTransport(name),
		})
	}
	return devices
}

func pulseTransport(name string) string {
	switch {
	case strings.HasPrefix(name, "bluez_"):
		return "bluetooth"
	case strings.Contains(name, "usb"):
		return "usb"
	case strings.Contains(name, "pci"):
		return "builtin"
	}
	return ""
}

// StaticLister reports a fixed device list, used where no enumeration tool exists
type StaticLister struct {
	Devices []entities.AudioDevice
}

func (l StaticLister) ListDevices(ctx context.Context) ([]entities.AudioDevice, error) {
	return append([]entities.AudioDevice(nil), l.Devices...), nil
}
