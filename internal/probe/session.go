// Package probe orchestrates one probing session against a live voice model:
// synthesize the prompt, wait for the line to go quiet, inject the prompt
// into the virtual cable, bridge the operator's microphone in, and optionally
// record and classify the model's reply.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/voxprobe/internal/cache"
	"github.com/MrWong99/voxprobe/internal/observe"
	"github.com/MrWong99/voxprobe/pkg/audio"
	"github.com/MrWong99/voxprobe/pkg/audio/device"
	"github.com/MrWong99/voxprobe/pkg/provider/eval"
	"github.com/MrWong99/voxprobe/pkg/provider/stt"
	"github.com/MrWong99/voxprobe/pkg/provider/tts"
)

// ErrPromptRequired is returned by [Session.Run] when no prompt text was
// configured.
var ErrPromptRequired = errors.New("probe: prompt text must not be empty")

// Services bundles the boundary providers a session calls out to. STT and
// Eval may be nil when verification is disabled.
type Services struct {
	TTS  tts.Provider
	STT  stt.Provider
	Eval eval.Provider
}

// Config describes one probing session.
type Config struct {
	// Prompt is the probe text to synthesize and inject.
	Prompt string

	// Microphone is the operator's capture device, matched exactly.
	Microphone string

	// VirtualOutput is the virtual cable leg the microphone bridge plays
	// into, matched exactly.
	VirtualOutput string

	// VirtualInput is the virtual cable leg the synthesized prompt is played
	// to, matched by substring.
	VirtualInput string

	// BotMonitor is the loopback device carrying the probed model's voice,
	// matched by substring. The silence gate and the recorder listen here.
	// Empty disables gating; combined with Verify it is a configuration
	// error, since the recorder would have nothing to listen to.
	BotMonitor string

	// Verify enables the record → transcribe → classify step after the
	// prompt has been played.
	Verify bool

	// OutputDir receives the session artifacts (prompt audio, recording).
	OutputDir string

	// Bridge tunes the microphone relay.
	Bridge audio.BridgeConfig

	// Gate tunes the silence gate. MonitorDevice is overridden with
	// BotMonitor.
	Gate audio.GateConfig

	// Record tunes the reply recorder. Device is overridden with BotMonitor.
	Record audio.RecorderConfig
}

// Result collects the artifacts and verdict of one session.
type Result struct {
	// PromptPath is the synthesized (or cache-served) prompt audio file.
	PromptPath string

	// CacheHit reports whether the prompt audio came from the cache.
	CacheHit bool

	// RecordingPath is the recorded reply, empty unless Verify ran.
	RecordingPath string

	// Transcript is the recognised reply text, empty unless Verify ran.
	Transcript string

	// Verdict is the classification outcome, nil unless Verify ran.
	Verdict *eval.Verdict
}

// Session runs one probe against a live voice model. A Session is single-use:
// create one per Run.
type Session struct {
	host    device.Host
	cfg     Config
	svc     Services
	store   *cache.Store
	metrics *observe.Metrics
}

// NewSession creates a session. store may be nil to disable prompt caching
// and metrics may be nil to use [observe.DefaultMetrics].
func NewSession(host device.Host, cfg Config, svc Services, store *cache.Store, metrics *observe.Metrics) *Session {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	cfg.Gate.MonitorDevice = cfg.BotMonitor
	cfg.Gate.Required = cfg.Verify
	cfg.Record.Device = cfg.BotMonitor
	return &Session{host: host, cfg: cfg, svc: svc, store: store, metrics: metrics}
}

// Run executes the full session flow and blocks until the session ends. When
// the probe leaves the microphone bridge live (no verification, or a verdict
// of success), Run keeps relaying until ctx is cancelled; cancellation is the
// normal way to end such a session and is not reported as an error.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.cfg.Prompt == "" {
		return nil, ErrPromptRequired
	}
	if s.svc.TTS == nil {
		return nil, errors.New("probe: tts provider is required")
	}
	if s.cfg.Verify && (s.svc.STT == nil || s.svc.Eval == nil) {
		return nil, errors.New("probe: verify requires stt and eval providers")
	}
	// Without a monitor the recorder has nothing to listen to; refuse before
	// any network call rather than recording from an arbitrary input device.
	if s.cfg.Verify && s.cfg.BotMonitor == "" {
		return nil, fmt.Errorf("probe: verify: %w", audio.ErrMonitorRequired)
	}

	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(ctx, -1)

	// Resolve the device setup up front so a bad name fails before any
	// network call or stream is opened.
	dir, err := device.NewDirectory(s.host)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if err := dir.Validate(s.cfg.Microphone, s.cfg.VirtualOutput, s.cfg.VirtualInput, s.cfg.BotMonitor); err != nil {
		slog.Error("device validation failed", "available", dir.Describe())
		return nil, fmt.Errorf("probe: %w", err)
	}

	var routing device.Routing
	routing, err = dir.RouteOutput(routing, s.cfg.VirtualInput)
	if err != nil {
		return nil, fmt.Errorf("probe: route prompt output: %w", err)
	}
	if s.cfg.BotMonitor != "" {
		routing, err = dir.RouteInput(routing, s.cfg.BotMonitor)
		if err != nil {
			return nil, fmt.Errorf("probe: route monitor input: %w", err)
		}
	}
	slog.Info("session routing resolved",
		"output", routing.Output.Name, "input", routing.Input.Name)

	res := &Result{}
	if err := s.synthesizePrompt(ctx, res); err != nil {
		return nil, err
	}

	// Do not speak over the bot: wait for its line to go quiet first.
	gate := audio.NewGate(s.host, s.cfg.Gate)
	if err := gate.Wait(ctx); err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}

	player := audio.NewPlayer(s.host, s.cfg.Bridge.BlockSize)
	if err := player.Play(ctx, res.PromptPath, routing.Output.Name); err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}

	bridgeCfg := s.cfg.Bridge
	bridgeCfg.CaptureDevice = s.cfg.Microphone
	bridgeCfg.PlaybackDevice = s.cfg.VirtualOutput
	bridge := audio.NewBridge(s.host, bridgeCfg)
	if err := bridge.Start(); err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}
	defer s.stopBridge(ctx, bridge)

	if !s.cfg.Verify {
		slog.Info("microphone bridge live; press Ctrl-C to end the session")
		<-ctx.Done()
		return res, nil
	}

	if err := s.verify(ctx, res); err != nil {
		return res, err
	}

	if res.Verdict.Success {
		slog.Info("probe succeeded; keeping microphone live for the conversation",
			"reason", res.Verdict.Reason)
		<-ctx.Done()
		return res, nil
	}

	slog.Info("probe did not succeed; ending session", "reason", res.Verdict.Reason)
	return res, nil
}

// synthesizePrompt produces the prompt audio file, serving it from the cache
// when the exact text has been synthesized before.
func (s *Session) synthesizePrompt(ctx context.Context, res *Result) error {
	format := s.svc.TTS.Format()
	res.PromptPath = filepath.Join(s.cfg.OutputDir, "prompt."+format)
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("probe: create output dir: %w", err)
	}

	if s.store != nil {
		hit, err := s.store.Fetch(s.cfg.Prompt, format, res.PromptPath)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		s.metrics.RecordCacheLookup(ctx, hit)
		if hit {
			res.CacheHit = true
			slog.Info("prompt audio served from cache", "file", res.PromptPath)
			return nil
		}
	}

	f, err := os.Create(res.PromptPath)
	if err != nil {
		return fmt.Errorf("probe: create prompt file: %w", err)
	}
	start := time.Now()
	synthErr := s.svc.TTS.Synthesize(ctx, s.cfg.Prompt, f)
	s.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if closeErr := f.Close(); synthErr == nil {
		synthErr = closeErr
	}
	if synthErr != nil {
		s.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return fmt.Errorf("probe: synthesize prompt: %w", synthErr)
	}
	s.metrics.RecordProviderRequest(ctx, "tts", "synthesize", "ok")
	slog.Info("prompt synthesized", "file", res.PromptPath, "chars", len(s.cfg.Prompt))

	if s.store != nil {
		if err := s.store.Store(s.cfg.Prompt, format, res.PromptPath); err != nil {
			// A failed cache write costs a future synthesis, nothing more.
			slog.Warn("caching prompt audio failed", "error", err)
		}
	}
	return nil
}

// verify records the bot's reply, transcribes it, and classifies the
// transcript. The recording is kept on disk next to the prompt audio.
func (s *Session) verify(ctx context.Context, res *Result) error {
	recorder := audio.NewRecorder(s.host, s.cfg.Record)
	samples, err := recorder.Record(ctx)
	if err != nil {
		return fmt.Errorf("probe: record reply: %w", err)
	}

	res.RecordingPath = filepath.Join(s.cfg.OutputDir, "response.wav")
	if err := audio.WriteWAV(res.RecordingPath, samples, recorder.SampleRate()); err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	start := time.Now()
	transcript, err := s.svc.STT.Transcribe(ctx, res.RecordingPath)
	s.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "stt", "transcribe")
		return fmt.Errorf("probe: transcribe reply: %w", err)
	}
	s.metrics.RecordProviderRequest(ctx, "stt", "transcribe", "ok")
	res.Transcript = transcript
	slog.Info("reply transcribed", "transcript", transcript)

	start = time.Now()
	verdict, err := s.svc.Eval.Evaluate(ctx, transcript)
	s.metrics.EvalDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(ctx, "eval", "evaluate")
		return fmt.Errorf("probe: classify reply: %w", err)
	}
	s.metrics.RecordProviderRequest(ctx, "eval", "evaluate", "ok")
	res.Verdict = &verdict
	return nil
}

// stopBridge shuts the bridge down and flushes its callback counters into the
// metrics pipeline.
func (s *Session) stopBridge(ctx context.Context, bridge *audio.Bridge) {
	if err := bridge.Stop(); err != nil {
		slog.Warn("stopping bridge failed", "error", err)
	}
	overflows, underruns := bridge.Counters()
	s.metrics.RecordBridgeStats(ctx, bridge.FramesForwarded(), overflows, underruns)
	slog.Info("bridge stopped",
		"frames_forwarded", bridge.FramesForwarded(),
		"overflows", overflows, "underruns", underruns)
}
