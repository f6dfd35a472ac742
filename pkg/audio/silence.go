package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

// ErrMonitorRequired is returned by [Gate.Wait] when no monitor device is
// configured but the caller marked silence gating as required.
var ErrMonitorRequired = errors.New("monitor device must be configured when silence gating is required")

// Silence detection defaults, shared by [Gate] and [Recorder]. The threshold
// is a mean absolute amplitude in 16-bit PCM units (full scale 32767); 500 is
// comfortably above electrical noise floors and below any audible speech.
const (
	DefaultSilenceThreshold = 500
	DefaultSilenceWindow    = 2 * time.Second
	DefaultFrameDuration    = 100 * time.Millisecond
	DefaultGateSampleRate   = 44100
)

// MeanAbs returns the mean absolute amplitude of a block of 16-bit samples.
// An empty block is reported as pure silence.
func MeanAbs(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(samples))
}

// silenceRun counts consecutive frames below an amplitude threshold. A single
// frame at or above the threshold resets the run, forcing a fresh window.
// This is the one silence-detection primitive shared by the gate-only and
// capture-and-return paths.
type silenceRun struct {
	threshold float64
	required  int
	run       int
}

func newSilenceRun(threshold float64, window, frame time.Duration) *silenceRun {
	required := int(window / frame)
	if required < 1 {
		required = 1
	}
	return &silenceRun{threshold: threshold, required: required}
}

// observe feeds one frame amplitude and reports whether the required run of
// silent frames has now been reached.
func (s *silenceRun) observe(amplitude float64) bool {
	if amplitude >= s.threshold {
		s.run = 0
		return false
	}
	s.run++
	return s.run >= s.required
}

// GateConfig configures a [Gate].
type GateConfig struct {
	// MonitorDevice is the name of the device to listen on, matched by
	// substring against output-capable devices. The gate expects a
	// loopback-capable endpoint (a virtual cable's output leg) whose playback
	// can be opened as a capture stream; this is how the bot's own speech is
	// observed. Empty means no gating.
	MonitorDevice string

	// Threshold is the mean-absolute-amplitude silence threshold in 16-bit
	// PCM units. Defaults to [DefaultSilenceThreshold].
	Threshold float64

	// Window is how long the line must stay quiet before Wait unblocks.
	// Defaults to [DefaultSilenceWindow].
	Window time.Duration

	// FrameDuration is the duration of each analysed frame.
	// Defaults to [DefaultFrameDuration].
	FrameDuration time.Duration

	// SampleRate of the monitor stream. Defaults to [DefaultGateSampleRate].
	SampleRate int

	// Required makes a missing MonitorDevice a configuration error instead
	// of a no-op.
	Required bool
}

func (c *GateConfig) applyDefaults() {
	if c.Threshold <= 0 {
		c.Threshold = DefaultSilenceThreshold
	}
	if c.Window <= 0 {
		c.Window = DefaultSilenceWindow
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = DefaultFrameDuration
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultGateSampleRate
	}
}

// Gate blocks a caller until a required duration of near-silence has been
// observed on a monitored device. It is used to avoid speaking over the bot:
// the prompt is played only once the bot's output line has gone quiet.
type Gate struct {
	host device.Host
	cfg  GateConfig
}

// NewGate creates a gate. Zero-value config fields are replaced with the
// package defaults.
func NewGate(host device.Host, cfg GateConfig) *Gate {
	cfg.applyDefaults()
	return &Gate{host: host, cfg: cfg}
}

// Wait blocks until the monitored line has been below the threshold for the
// configured window, ctx is cancelled, or — when no monitor is configured —
// immediately (nil unless Required, in which case [ErrMonitorRequired]).
//
// Cancellation is cooperative: Wait reacts between frames, never mid-frame.
func (g *Gate) Wait(ctx context.Context) error {
	if g.cfg.MonitorDevice == "" {
		if g.cfg.Required {
			return fmt.Errorf("gate: %w", ErrMonitorRequired)
		}
		return nil
	}

	dir, err := device.NewDirectory(g.host)
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	dev, err := dir.FindContains(g.cfg.MonitorDevice, device.Output)
	if err != nil {
		slog.Error("silence monitor device not found",
			"device", g.cfg.MonitorDevice, "available", dir.Describe())
		return fmt.Errorf("gate: %w", err)
	}
	slog.Info("waiting for silence", "device", dev.Name, "index", dev.Index,
		"window", g.cfg.Window, "threshold", g.cfg.Threshold)

	frames, stream, err := captureFrames(g.host, dev, g.cfg.SampleRate, g.cfg.FrameDuration)
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
	}()

	run := newSilenceRun(g.cfg.Threshold, g.cfg.Window, g.cfg.FrameDuration)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-frames:
			amplitude := MeanAbs(frame)
			slog.Debug("monitor frame", "amplitude", amplitude)
			if run.observe(amplitude) {
				slog.Info("silence detected", "device", dev.Name)
				return nil
			}
		}
	}
}

// captureFrames opens a started S16 capture stream on dev whose blocks are
// delivered on the returned channel. The callback copies each block and uses
// a non-blocking send; if the consumer stalls, frames are discarded rather
// than blocking the driver thread.
func captureFrames(host device.Host, dev device.Device, sampleRate int, frameDuration time.Duration) (<-chan []int16, device.Stream, error) {
	frameSize := int(float64(sampleRate) * frameDuration.Seconds())
	frames := make(chan []int16, 64)

	stream, err := host.OpenCapture(device.StreamParams{
		DeviceIndex:    dev.Index,
		SampleRate:     sampleRate,
		FramesPerBlock: frameSize,
	}, func(in []int16) {
		frame := make([]int16, len(in))
		copy(frame, in)
		select {
		case frames <- frame:
		default:
		}
	})
	if err != nil {
		return nil, nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, nil, err
	}
	return frames, stream, nil
}
