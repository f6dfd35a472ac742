package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

// fakeStream is an in-memory device.Stream that tracks lifecycle calls and
// optionally runs a pump goroutine while started.
type fakeStream struct {
	onStart func(stop *atomic.Bool)

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
	closed  bool
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if s.onStart != nil {
		s.onStart(&s.stopped)
	}
	return nil
}

func (s *fakeStream) Stop() error {
	s.stopped.Store(true)
	return nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeHost implements device.Host against a fixed device list. Capture
// streams replay captureScript block by block from a goroutine; playback
// streams are either driven by the test directly through the registered
// callback, or automatically when drivePlayback is set.
type fakeHost struct {
	list          []device.Device
	captureScript [][]int16
	loopLast      bool
	drivePlayback bool
	playBlock     int
	openErr       error

	mu         sync.Mutex
	captureF   func([]float32)
	playbackCB func([]float32)
	streams    []*fakeStream
}

func newFakeHost(list []device.Device) *fakeHost {
	return &fakeHost{list: list, playBlock: 256}
}

func (h *fakeHost) Devices() ([]device.Device, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	out := make([]device.Device, len(h.list))
	copy(out, h.list)
	return out, nil
}

func (h *fakeHost) newStream(onStart func(stop *atomic.Bool)) *fakeStream {
	s := &fakeStream{onStart: onStart}
	h.mu.Lock()
	h.streams = append(h.streams, s)
	h.mu.Unlock()
	return s
}

func (h *fakeHost) OpenCapture(p device.StreamParams, cb func(in []int16)) (device.Stream, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	script := h.captureScript
	loop := h.loopLast
	return h.newStream(func(stop *atomic.Bool) {
		go func() {
			for i := 0; !stop.Load(); i++ {
				var frame []int16
				switch {
				case i < len(script):
					frame = script[i]
				case loop && len(script) > 0:
					frame = script[len(script)-1]
				default:
					return
				}
				cb(frame)
				time.Sleep(time.Millisecond)
			}
		}()
	}), nil
}

func (h *fakeHost) OpenCaptureFloat(p device.StreamParams, cb func(in []float32)) (device.Stream, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	h.mu.Lock()
	h.captureF = cb
	h.mu.Unlock()
	return h.newStream(nil), nil
}

func (h *fakeHost) OpenPlayback(p device.StreamParams, cb func(out []float32)) (device.Stream, error) {
	if h.openErr != nil {
		return nil, h.openErr
	}
	h.mu.Lock()
	h.playbackCB = cb
	h.mu.Unlock()
	var onStart func(stop *atomic.Bool)
	if h.drivePlayback {
		block := h.playBlock
		onStart = func(stop *atomic.Bool) {
			go func() {
				buf := make([]float32, block)
				for !stop.Load() {
					cb(buf)
					time.Sleep(time.Millisecond)
				}
			}()
		}
	}
	return h.newStream(onStart), nil
}

func (h *fakeHost) Close() error { return nil }

// capture returns the registered float capture callback, failing loudly when
// no stream was opened.
func (h *fakeHost) capture() (func([]float32), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.captureF == nil {
		return nil, errors.New("no capture stream opened")
	}
	return h.captureF, nil
}

func (h *fakeHost) playback() (func([]float32), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playbackCB == nil {
		return nil, errors.New("no playback stream opened")
	}
	return h.playbackCB, nil
}

// testDevices is a typical probing setup: a physical microphone, both legs of
// a virtual cable, and a loopback monitor for the bot's voice.
func testDevices() []device.Device {
	return []device.Device{
		{Index: 0, Name: "USB Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{Index: 1, Name: "CABLE Input (VB-Audio)", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{Index: 2, Name: "CABLE Output (VB-Audio)", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{Index: 3, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	}
}
