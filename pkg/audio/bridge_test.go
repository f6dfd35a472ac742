package audio

import (
	"errors"
	"testing"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

func startedBridge(t *testing.T) (*Bridge, *fakeHost) {
	t.Helper()
	host := newFakeHost(testDevices())
	b := NewBridge(host, BridgeConfig{
		CaptureDevice:  "USB Microphone",
		PlaybackDevice: "CABLE Input (VB-Audio)",
		BlockSize:      4,
		QueueCapacity:  4,
	})
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { b.Stop() })
	return b, host
}

func TestBridge_StartResolvesDevicesExactly(t *testing.T) {
	b, _ := startedBridge(t)
	if b.State() != BridgeRunning {
		t.Errorf("state = %v, want running", b.State())
	}
}

func TestBridge_StartUnknownDevice(t *testing.T) {
	host := newFakeHost(testDevices())
	b := NewBridge(host, BridgeConfig{
		CaptureDevice:  "Nonexistent Mic",
		PlaybackDevice: "CABLE Input (VB-Audio)",
	})
	err := b.Start()
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("Start err = %v, want ErrDeviceNotFound", err)
	}
	if b.State() != BridgeIdle {
		t.Errorf("state after failed start = %v, want idle", b.State())
	}
	// The failure is recoverable; a corrected bridge may be started.
	if err := b.Start(); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("second Start err = %v, want ErrDeviceNotFound", err)
	}
}

func TestBridge_StartPartialNameDoesNotMatch(t *testing.T) {
	host := newFakeHost(testDevices())
	b := NewBridge(host, BridgeConfig{
		CaptureDevice:  "Microphone", // substring of "USB Microphone"
		PlaybackDevice: "CABLE Input (VB-Audio)",
	})
	if err := b.Start(); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("Start err = %v, want ErrDeviceNotFound for partial name", err)
	}
}

func TestBridge_DoubleStart(t *testing.T) {
	b, _ := startedBridge(t)
	if err := b.Start(); !errors.Is(err, ErrBridgeRunning) {
		t.Errorf("second Start err = %v, want ErrBridgeRunning", err)
	}
}

func TestBridge_RelaysCaptureToPlayback(t *testing.T) {
	b, host := startedBridge(t)

	capture, err := host.capture()
	if err != nil {
		t.Fatal(err)
	}
	playback, err := host.playback()
	if err != nil {
		t.Fatal(err)
	}

	capture([]float32{1, 2, 3, 4})
	out := make([]float32, 4)
	playback(out)

	want := []float32{1, 2, 3, 4}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}
	if b.FramesForwarded() != 1 {
		t.Errorf("FramesForwarded = %d, want 1", b.FramesForwarded())
	}
}

func TestBridge_PlaybackSplitsOversizedFrame(t *testing.T) {
	_, host := startedBridge(t)

	capture, _ := host.capture()
	playback, _ := host.playback()

	capture([]float32{1, 2, 3, 4})

	out := make([]float32, 2)
	playback(out)
	if out[0] != 1 || out[1] != 2 {
		t.Fatalf("first half = %v, want [1 2]", out)
	}
	playback(out)
	if out[0] != 3 || out[1] != 4 {
		t.Fatalf("second half = %v, want [3 4]", out)
	}
}

func TestBridge_UnderrunZeroFills(t *testing.T) {
	b, host := startedBridge(t)

	playback, _ := host.playback()
	out := []float32{9, 9, 9, 9}
	playback(out)

	for i, v := range out {
		if v != 0 {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
	if _, underruns := b.Counters(); underruns != 1 {
		t.Errorf("underruns = %d, want 1", underruns)
	}
}

func TestBridge_OverflowDropsNewest(t *testing.T) {
	b, host := startedBridge(t)

	capture, _ := host.capture()
	for i := 0; i < 6; i++ { // capacity is 4
		capture([]float32{float32(i)})
	}

	overflows, _ := b.Counters()
	if overflows != 2 {
		t.Errorf("overflows = %d, want 2", overflows)
	}
	if b.FramesForwarded() != 4 {
		t.Errorf("FramesForwarded = %d, want 4", b.FramesForwarded())
	}

	// The oldest audio survives.
	playback, _ := host.playback()
	out := make([]float32, 1)
	playback(out)
	if out[0] != 0 {
		t.Errorf("first relayed sample = %v, want 0", out[0])
	}
}

func TestBridge_StopBeforeStart(t *testing.T) {
	b := NewBridge(newFakeHost(testDevices()), BridgeConfig{})
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if b.State() != BridgeStopped {
		t.Errorf("state = %v, want stopped", b.State())
	}
}

func TestBridge_StartAfterStopRejected(t *testing.T) {
	b, _ := startedBridge(t)
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := b.Start(); !errors.Is(err, ErrBridgeStopped) {
		t.Fatalf("Start after Stop err = %v, want ErrBridgeStopped", err)
	}
	if b.State() != BridgeStopped {
		t.Errorf("state = %v, want stopped", b.State())
	}
}

func TestBridge_StopIsIdempotent(t *testing.T) {
	b, host := startedBridge(t)
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, s := range host.streams {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			t.Error("a stream was left open after Stop")
		}
	}
}
