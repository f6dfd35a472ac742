// Package audio implements the real-time core of voxprobe: a duplex bridge
// that relays a microphone into a virtual cable through a bounded frame
// queue, an amplitude-threshold silence gate used for sequencing, a recorder
// that stops on silence, and WAV playback of synthesized prompts.
//
// Two execution regimes meet here. Stream callbacks run on driver-managed
// threads under hard real-time deadlines — they never block, never propagate
// errors, and report trouble only through counters. Everything else
// (Start/Stop, Wait, Record, Play) runs on ordinary goroutines and uses
// explicit error returns and context cancellation.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

// ErrBridgeRunning is returned by [Bridge.Start] when the bridge is already
// relaying audio.
var ErrBridgeRunning = errors.New("bridge already running")

// ErrBridgeStopped is returned by [Bridge.Start] after Stop has run; a Bridge
// is single-use.
var ErrBridgeStopped = errors.New("bridge already stopped")

// BridgeState tracks the lifecycle of a [Bridge].
type BridgeState int

const (
	// BridgeIdle means the bridge has never started, or initialisation failed
	// and the bridge may be started again.
	BridgeIdle BridgeState = iota

	// BridgeInitializing means Start is resolving devices and opening streams.
	BridgeInitializing

	// BridgeRunning means both streams are live and frames are being relayed.
	BridgeRunning

	// BridgeStopped means Stop has been called.
	BridgeStopped
)

// String returns the human-readable name of the state.
func (s BridgeState) String() string {
	switch s {
	case BridgeIdle:
		return "idle"
	case BridgeInitializing:
		return "initializing"
	case BridgeRunning:
		return "running"
	case BridgeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BridgeConfig configures a [Bridge].
type BridgeConfig struct {
	// CaptureDevice is the microphone name, matched exactly
	// (case-insensitively) against input-capable devices.
	CaptureDevice string

	// PlaybackDevice is the virtual cable input name, matched exactly against
	// output-capable devices.
	PlaybackDevice string

	// SampleRate overrides the relay sample rate. When zero the resolved
	// capture device's default rate is used for both streams. The bridge is a
	// raw sample forwarder, not a resampler.
	SampleRate int

	// BlockSize is the per-callback sample count for both streams.
	// Defaults to [DefaultBlockSize].
	BlockSize int

	// QueueCapacity bounds the relay queue in frames.
	// Defaults to [DefaultQueueCapacity].
	QueueCapacity int
}

// DefaultBlockSize is the per-callback block size used when
// [BridgeConfig.BlockSize] is zero.
const DefaultBlockSize = 2048

// Bridge relays mono audio frames from a capture device to a playback device
// through a bounded [FrameQueue]. The capture and playback callbacks run
// independently on driver threads; the queue decouples their block sizes and
// phases.
//
// Lifecycle: Idle → Initializing → Running → Stopped, with failed
// initialisation returning to Idle. Stop is idempotent and safe to call from
// any state, including before Start ever ran. A Bridge is not restartable:
// Start after Stop returns [ErrBridgeStopped]; create a new one per session.
type Bridge struct {
	host device.Host
	cfg  BridgeConfig

	queue *FrameQueue

	mu    sync.Mutex
	state BridgeState
	in    device.Stream
	out   device.Stream

	overflows atomic.Uint64
	underruns atomic.Uint64
	forwarded atomic.Uint64
}

// NewBridge creates a bridge. The queue capacity is fixed here and kept for
// the bridge's lifetime.
func NewBridge(host device.Host, cfg BridgeConfig) *Bridge {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	return &Bridge{
		host:  host,
		cfg:   cfg,
		queue: NewFrameQueue(cfg.QueueCapacity),
		state: BridgeIdle,
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counters returns the number of frames dropped on a full queue (overflows)
// and the number of playback callbacks padded with silence (underruns).
func (b *Bridge) Counters() (overflows, underruns uint64) {
	return b.overflows.Load(), b.underruns.Load()
}

// FramesForwarded returns the number of capture blocks successfully enqueued.
func (b *Bridge) FramesForwarded() uint64 {
	return b.forwarded.Load()
}

// Start resolves both devices by exact name, opens the two streams, and
// begins relaying. Device names are resolved exactly once per Start and never
// re-resolved mid-session.
//
// A resolution miss is recoverable: the full device table is logged for
// diagnosis, [device.ErrDeviceNotFound] is returned, and the bridge drops
// back to Idle so the caller may retry with a corrected setup.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BridgeRunning {
		return ErrBridgeRunning
	}
	if b.state == BridgeStopped {
		return ErrBridgeStopped
	}
	b.state = BridgeInitializing

	dir, err := device.NewDirectory(b.host)
	if err != nil {
		b.state = BridgeIdle
		return fmt.Errorf("bridge: %w", err)
	}

	capDev, err := dir.FindExact(b.cfg.CaptureDevice, device.Input)
	if err != nil {
		slog.Error("bridge capture device not found",
			"device", b.cfg.CaptureDevice, "available", dir.Describe())
		b.state = BridgeIdle
		return fmt.Errorf("bridge: capture: %w", err)
	}
	playDev, err := dir.FindExact(b.cfg.PlaybackDevice, device.Output)
	if err != nil {
		slog.Error("bridge playback device not found",
			"device", b.cfg.PlaybackDevice, "available", dir.Describe())
		b.state = BridgeIdle
		return fmt.Errorf("bridge: playback: %w", err)
	}

	rate := b.cfg.SampleRate
	if rate <= 0 {
		rate = capDev.DefaultSampleRate
	}

	in, err := b.host.OpenCaptureFloat(device.StreamParams{
		DeviceIndex:    capDev.Index,
		SampleRate:     rate,
		FramesPerBlock: b.cfg.BlockSize,
	}, b.captureCallback)
	if err != nil {
		b.state = BridgeIdle
		return fmt.Errorf("bridge: %w", err)
	}
	out, err := b.host.OpenPlayback(device.StreamParams{
		DeviceIndex:    playDev.Index,
		SampleRate:     rate,
		FramesPerBlock: b.cfg.BlockSize,
	}, b.playbackCallback)
	if err != nil {
		in.Close()
		b.state = BridgeIdle
		return fmt.Errorf("bridge: %w", err)
	}

	if err := in.Start(); err != nil {
		in.Close()
		out.Close()
		b.state = BridgeIdle
		return fmt.Errorf("bridge: start capture: %w", err)
	}
	if err := out.Start(); err != nil {
		in.Stop()
		in.Close()
		out.Close()
		b.state = BridgeIdle
		return fmt.Errorf("bridge: start playback: %w", err)
	}

	b.in = in
	b.out = out
	b.state = BridgeRunning
	slog.Info("audio bridge running",
		"capture", capDev.Name, "capture_index", capDev.Index,
		"playback", playDev.Name, "playback_index", playDev.Index,
		"sample_rate", rate, "block_size", b.cfg.BlockSize)
	return nil
}

// Stop stops and closes both streams, tolerating streams that were never
// opened, and transitions to Stopped. Stream handles are cleared so a second
// Stop is a no-op.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.in != nil {
		errs = append(errs, b.in.Stop(), b.in.Close())
		b.in = nil
	}
	if b.out != nil {
		errs = append(errs, b.out.Stop(), b.out.Close())
		b.out = nil
	}
	b.state = BridgeStopped
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("bridge: stop: %w", err)
	}
	return nil
}

// captureCallback runs on the capture driver thread each time a full block of
// samples is available. The block is copied into a fresh frame; the driver
// reuses its buffer.
func (b *Bridge) captureCallback(in []float32) {
	frame := make([]float32, len(in))
	copy(frame, in)
	if !b.queue.PushBack(frame) {
		b.overflows.Add(1)
		return
	}
	b.forwarded.Add(1)
}

// playbackCallback runs on the playback driver thread and must fill out
// completely before returning. It never waits for data: when the queue runs
// dry the remainder of the block is zeroed and an underrun is counted.
func (b *Bridge) playbackCallback(out []float32) {
	filled := 0
	for filled < len(out) {
		frame, ok := b.queue.PopFront()
		if !ok {
			for i := filled; i < len(out); i++ {
				out[i] = 0
			}
			b.underruns.Add(1)
			return
		}
		n := copy(out[filled:], frame)
		if n < len(frame) {
			b.queue.PushFront(frame[n:])
		}
		filled += n
	}
}
