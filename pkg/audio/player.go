package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/voxprobe/pkg/audio/device"
)

// Player plays a WAV file through a named output device. It is used to feed
// the synthesized prompt into the virtual cable before the live bridge takes
// over.
type Player struct {
	host      device.Host
	blockSize int
}

// NewPlayer creates a player. blockSize defaults to [DefaultBlockSize].
func NewPlayer(host device.Host, blockSize int) *Player {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Player{host: host, blockSize: blockSize}
}

// Play decodes path and streams it to the first output-capable device whose
// name contains outputDevice, blocking until playback completes or ctx is
// cancelled. The file's own sample rate is used for the stream.
func (p *Player) Play(ctx context.Context, path, outputDevice string) error {
	samples, sampleRate, err := ReadWAV(path)
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}

	dir, err := device.NewDirectory(p.host)
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	dev, err := dir.FindContains(outputDevice, device.Output)
	if err != nil {
		slog.Error("playback device not found",
			"device", outputDevice, "available", dir.Describe())
		return fmt.Errorf("player: %w", err)
	}

	// pos is touched only by the playback callback; done is closed exactly
	// once when the last sample has been handed to the driver.
	var (
		pos  int
		once sync.Once
		done = make(chan struct{})
	)
	stream, err := p.host.OpenPlayback(device.StreamParams{
		DeviceIndex:    dev.Index,
		SampleRate:     sampleRate,
		FramesPerBlock: p.blockSize,
	}, func(out []float32) {
		n := copy(out, samples[pos:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		pos += n
		if pos >= len(samples) {
			once.Do(func() { close(done) })
		}
	})
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("player: start: %w", err)
	}
	defer func() {
		stream.Stop()
		stream.Close()
	}()

	slog.Info("playing prompt audio", "file", path, "device", dev.Name,
		"sample_rate", sampleRate, "samples", len(samples))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
