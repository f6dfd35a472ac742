package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

func TestRecorder_StopsOnTrailingSilence(t *testing.T) {
	host := newFakeHost(testDevices())
	loud := []int16{1000, 1000}
	quiet := []int16{5, 5}
	host.captureScript = [][]int16{loud, loud, loud, quiet, quiet, quiet}

	r := NewRecorder(host, RecorderConfig{
		Device:        "cable output",
		Threshold:     500,
		SilenceWindow: 20 * time.Millisecond,
		FrameDuration: 10 * time.Millisecond,
		MaxDuration:   2 * time.Second,
	})

	samples, err := r.Record(context.Background())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Three loud frames plus the two quiet frames that closed the window.
	if len(samples) != 10 {
		t.Errorf("recorded %d samples, want 10", len(samples))
	}
	if samples[0] != 1000 {
		t.Errorf("first sample = %d, want 1000", samples[0])
	}
}

func TestRecorder_StopsAtMaxDuration(t *testing.T) {
	host := newFakeHost(testDevices())
	host.captureScript = [][]int16{{1000, 1000}}
	host.loopLast = true

	r := NewRecorder(host, RecorderConfig{
		Device:        "cable output",
		Threshold:     500,
		SilenceWindow: 10 * time.Second,
		FrameDuration: 10 * time.Millisecond,
		MaxDuration:   50 * time.Millisecond,
	})

	start := time.Now()
	samples, err := r.Record(context.Background())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(samples) == 0 {
		t.Error("no samples recorded before the deadline")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Record took %v, deadline not honoured", elapsed)
	}
}

func TestRecorder_CancelReturnsPartialBuffer(t *testing.T) {
	host := newFakeHost(testDevices())
	host.captureScript = [][]int16{{1000, 1000}}
	host.loopLast = true

	r := NewRecorder(host, RecorderConfig{
		Device:        "cable output",
		FrameDuration: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	samples, err := r.Record(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Record err = %v, want DeadlineExceeded", err)
	}
	_ = samples // partial audio is still returned alongside the error
}

func TestRecorder_EmptyDeviceName(t *testing.T) {
	r := NewRecorder(newFakeHost(testDevices()), RecorderConfig{})
	_, err := r.Record(context.Background())
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("Record err = %v, want ErrDeviceNotFound for empty device name", err)
	}
}

func TestRecorder_UnknownDevice(t *testing.T) {
	r := NewRecorder(newFakeHost(testDevices()), RecorderConfig{Device: "ghost"})
	_, err := r.Record(context.Background())
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Fatalf("Record err = %v, want ErrDeviceNotFound", err)
	}
}

func TestRecorder_Defaults(t *testing.T) {
	r := NewRecorder(newFakeHost(testDevices()), RecorderConfig{Device: "cable output"})
	if r.SampleRate() != DefaultGateSampleRate {
		t.Errorf("SampleRate = %d, want %d", r.SampleRate(), DefaultGateSampleRate)
	}
	if r.cfg.MaxDuration != DefaultMaxRecordDuration {
		t.Errorf("MaxDuration = %v, want %v", r.cfg.MaxDuration, DefaultMaxRecordDuration)
	}
	if r.cfg.SilenceWindow != 1500*time.Millisecond {
		t.Errorf("SilenceWindow = %v, want 1.5s", r.cfg.SilenceWindow)
	}
}
