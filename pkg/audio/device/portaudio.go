package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Compile-time interface assertion.
var _ Host = (*PortAudioHost)(nil)

// PortAudioHost implements [Host] on top of the PortAudio library — the same
// backend the usual virtual-cable drivers (VB-Audio, BlackHole) register
// their endpoints with.
//
// The host owns the PortAudio initialisation; create exactly one per process
// and release it with Close.
type PortAudioHost struct{}

// NewPortAudioHost initialises PortAudio and returns the host.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: initialise portaudio: %w", err)
	}
	return &PortAudioHost{}, nil
}

// Devices implements [Host].
func (h *PortAudioHost) Devices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: query devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: int(info.DefaultSampleRate),
		}
	}
	return devices, nil
}

// deviceInfo maps a snapshot index back to the PortAudio device record.
func (h *PortAudioHost) deviceInfo(index int) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: query devices: %w", err)
	}
	if index < 0 || index >= len(infos) {
		return nil, fmt.Errorf("device: index %d out of range (%d devices)", index, len(infos))
	}
	return infos[index], nil
}

// OpenCapture implements [Host].
func (h *PortAudioHost) OpenCapture(p StreamParams, cb func(in []int16)) (Stream, error) {
	info, err := h.deviceInfo(p.DeviceIndex)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.SampleRate),
		FramesPerBuffer: p.FramesPerBlock,
	}
	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, fmt.Errorf("device: open capture stream on %q: %w", info.Name, err)
	}
	return stream, nil
}

// OpenCaptureFloat implements [Host].
func (h *PortAudioHost) OpenCaptureFloat(p StreamParams, cb func(in []float32)) (Stream, error) {
	info, err := h.deviceInfo(p.DeviceIndex)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.SampleRate),
		FramesPerBuffer: p.FramesPerBlock,
	}
	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, fmt.Errorf("device: open capture stream on %q: %w", info.Name, err)
	}
	return stream, nil
}

// OpenPlayback implements [Host].
func (h *PortAudioHost) OpenPlayback(p StreamParams, cb func(out []float32)) (Stream, error) {
	info, err := h.deviceInfo(p.DeviceIndex)
	if err != nil {
		return nil, err
	}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: 1,
			Latency:  info.DefaultLowOutputLatency,
		},
		SampleRate:      float64(p.SampleRate),
		FramesPerBuffer: p.FramesPerBlock,
	}
	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, fmt.Errorf("device: open playback stream on %q: %w", info.Name, err)
	}
	return stream, nil
}

// Close implements [Host].
func (h *PortAudioHost) Close() error {
	return portaudio.Terminate()
}
