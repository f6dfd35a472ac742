// Package device provides enumeration, lookup, and routing of audio
// endpoints, plus the [Host] abstraction over the operating-system audio
// subsystem.
//
// The two primary abstractions are:
//
//   - [Host] — opens capture and playback streams on a device and enumerates
//     what is available. The production implementation wraps PortAudio; tests
//     substitute an in-memory fake.
//   - [Directory] — a snapshot of one enumeration pass, with name-based
//     lookup by capability.
//
// Device indices are positions within a single enumeration. The OS may
// renumber devices between enumerations (hot-plug, driver restart), so an
// index must never outlive the [Directory] that produced it.
package device

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeviceNotFound is returned by directory lookups when no enumerated
// device matches the requested name and capability.
var ErrDeviceNotFound = errors.New("audio device not found")

// Direction selects which capability a device lookup filters on.
type Direction int

const (
	// Input matches devices that can capture audio (MaxInputChannels > 0).
	Input Direction = iota

	// Output matches devices that can play audio (MaxOutputChannels > 0).
	Output
)

// String returns the human-readable name of the direction.
func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Device is an immutable snapshot of one enumerated audio endpoint.
type Device struct {
	// Index is the device's position in the enumeration that produced it.
	Index int

	// Name is the driver-reported device name.
	Name string

	// MaxInputChannels is the number of capture channels the device supports.
	MaxInputChannels int

	// MaxOutputChannels is the number of playback channels the device supports.
	MaxOutputChannels int

	// DefaultSampleRate is the driver-reported default sample rate in Hz.
	DefaultSampleRate int
}

// supports reports whether the device has the capability required by dir.
func (d Device) supports(dir Direction) bool {
	if dir == Input {
		return d.MaxInputChannels > 0
	}
	return d.MaxOutputChannels > 0
}

// Directory is a snapshot of the devices visible in a single enumeration
// pass. Lookups iterate in platform enumeration order, so the first match is
// always the lowest-indexed one.
type Directory struct {
	devices []Device
}

// NewDirectory enumerates the host's devices once and returns the snapshot.
func NewDirectory(host Host) (*Directory, error) {
	devices, err := host.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: enumerate: %w", err)
	}
	return &Directory{devices: devices}, nil
}

// NewDirectoryFromDevices builds a directory from an explicit device list.
// Useful in tests where no real host is available.
func NewDirectoryFromDevices(devices []Device) *Directory {
	d := make([]Device, len(devices))
	copy(d, devices)
	return &Directory{devices: d}
}

// Devices returns a copy of the enumerated device list.
func (dir *Directory) Devices() []Device {
	out := make([]Device, len(dir.devices))
	copy(out, dir.devices)
	return out
}

// FindExact returns the first device whose name equals name
// (case-insensitively, ignoring surrounding whitespace) and which has the
// capability required by direction. Returns [ErrDeviceNotFound] on a miss.
func (dir *Directory) FindExact(name string, direction Direction) (Device, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, d := range dir.devices {
		if !d.supports(direction) {
			continue
		}
		if strings.ToLower(strings.TrimSpace(d.Name)) == want {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q (%s)", ErrDeviceNotFound, name, direction)
}

// FindContains returns the first device whose name contains name
// (case-insensitively) and which has the capability required by direction.
// Returns [ErrDeviceNotFound] on a miss. An empty name never matches: every
// device name contains "", so accepting it would silently resolve to the
// first device of the requested capability.
func (dir *Directory) FindContains(name string, direction Direction) (Device, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return Device{}, fmt.Errorf("%w: empty name (%s)", ErrDeviceNotFound, direction)
	}
	for _, d := range dir.devices {
		if !d.supports(direction) {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q (%s)", ErrDeviceNotFound, name, direction)
}

// Validate checks that every non-empty name in names resolves to at least one
// enumerated device (any capability). Matching is by substring so both exact
// and partial device names validate. It returns a joined error naming each
// missing device so a misconfigured setup fails with one complete report.
func (dir *Directory) Validate(names ...string) error {
	var errs []error
	for _, name := range names {
		if name == "" {
			continue
		}
		found := false
		want := strings.ToLower(strings.TrimSpace(name))
		for _, d := range dir.devices {
			if strings.Contains(strings.ToLower(d.Name), want) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDeviceNotFound, name))
		}
	}
	return errors.Join(errs...)
}

// Describe renders the device table in a one-device-per-line format suitable
// for diagnostics when a lookup fails.
func (dir *Directory) Describe() string {
	var b strings.Builder
	for _, d := range dir.devices {
		fmt.Fprintf(&b, "%3d: %s (in=%d out=%d rate=%d)\n",
			d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return b.String()
}
