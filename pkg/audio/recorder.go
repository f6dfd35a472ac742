package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

// DefaultMaxRecordDuration caps a recording when the speaker never goes
// quiet.
const DefaultMaxRecordDuration = 10 * time.Second

// RecorderConfig configures a [Recorder].
type RecorderConfig struct {
	// Device is the capture device name, matched by substring against
	// input-capable devices. For probing this is the virtual cable's capture
	// leg, carrying the bot's reply.
	Device string

	// SampleRate of the recording. Defaults to [DefaultGateSampleRate].
	SampleRate int

	// Threshold and SilenceWindow drive the silence-stop condition using the
	// same arithmetic as [Gate]: recording ends once the line has stayed
	// below Threshold for SilenceWindow. Defaults:
	// [DefaultSilenceThreshold], 1.5 s.
	Threshold     float64
	SilenceWindow time.Duration

	// FrameDuration is the duration of each captured frame.
	// Defaults to [DefaultFrameDuration].
	FrameDuration time.Duration

	// MaxDuration bounds the recording in wall-clock time. Reaching it is a
	// normal termination, not an error. Defaults to
	// [DefaultMaxRecordDuration].
	MaxDuration time.Duration
}

func (c *RecorderConfig) applyDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultGateSampleRate
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultSilenceThreshold
	}
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = 1500 * time.Millisecond
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = DefaultFrameDuration
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxRecordDuration
	}
}

// Recorder captures 16-bit mono audio from a device until the speaker falls
// silent or a maximum duration elapses, returning the full chronologically
// ordered sample buffer for downstream transcription.
type Recorder struct {
	host device.Host
	cfg  RecorderConfig
}

// NewRecorder creates a recorder. Zero-value config fields are replaced with
// the package defaults.
func NewRecorder(host device.Host, cfg RecorderConfig) *Recorder {
	cfg.applyDefaults()
	return &Recorder{host: host, cfg: cfg}
}

// SampleRate returns the effective recording sample rate.
func (r *Recorder) SampleRate() int {
	return r.cfg.SampleRate
}

// Record captures until a silence run satisfies the configured window, the
// max duration elapses, or ctx is cancelled. Both the silence and timeout
// branches are normal terminations that return the samples captured so far;
// cancellation returns the partial buffer together with ctx.Err().
func (r *Recorder) Record(ctx context.Context) ([]int16, error) {
	dir, err := device.NewDirectory(r.host)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	dev, err := dir.FindContains(r.cfg.Device, device.Input)
	if err != nil {
		slog.Error("recording device not found",
			"device", r.cfg.Device, "available", dir.Describe())
		return nil, fmt.Errorf("recorder: %w", err)
	}

	frames, stream, err := captureFrames(r.host, dev, r.cfg.SampleRate, r.cfg.FrameDuration)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
	}()

	slog.Info("recording", "device", dev.Name, "max_duration", r.cfg.MaxDuration)

	var recorded []int16
	run := newSilenceRun(r.cfg.Threshold, r.cfg.SilenceWindow, r.cfg.FrameDuration)
	deadline := time.NewTimer(r.cfg.MaxDuration)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return recorded, ctx.Err()
		case <-deadline.C:
			slog.Info("recording stopped at max duration", "samples", len(recorded))
			return recorded, nil
		case frame := <-frames:
			recorded = append(recorded, frame...)
			if run.observe(MeanAbs(frame)) {
				slog.Info("recording stopped on silence", "samples", len(recorded))
				return recorded, nil
			}
		}
	}
}
