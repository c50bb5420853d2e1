package sink

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
	"github.com/samber/lo"
)

// DefaultDevice is the display name of the system default output.
const DefaultDevice = "Default"

// Devices lists selectable output device names, the system default
// entry first. Enumeration failures degrade to just the default entry.
func Devices() []string {
	devices, err := portaudio.Devices()
	if err != nil {
		return []string{DefaultDevice}
	}
	outputs := lo.Filter(devices, func(d *portaudio.DeviceInfo, _ int) bool {
		return d.MaxOutputChannels > 0
	})
	return append([]string{DefaultDevice}, lo.Map(outputs, func(d *portaudio.DeviceInfo, _ int) string {
		return d.Name
	})...)
}

// outputDevice resolves a device name to a PortAudio device. An empty
// name or "Default" selects the system default output.
func outputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || strings.EqualFold(name, DefaultDevice) {
		return portaudio.DefaultOutputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("sink: enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("sink: output device %q not found", name)
}
