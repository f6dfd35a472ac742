// Command voxprobe runs one probing session against a live voice model
// reachable through a virtual audio cable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voxprobe/internal/cache"
	"github.com/MrWong99/voxprobe/internal/config"
	"github.com/MrWong99/voxprobe/internal/health"
	"github.com/MrWong99/voxprobe/internal/observe"
	"github.com/MrWong99/voxprobe/internal/probe"
	"github.com/MrWong99/voxprobe/internal/resilience"
	"github.com/MrWong99/voxprobe/pkg/audio"
	"github.com/MrWong99/voxprobe/pkg/audio/device"
	"github.com/MrWong99/voxprobe/pkg/provider/eval"
	oaieval "github.com/MrWong99/voxprobe/pkg/provider/eval/openai"
	"github.com/MrWong99/voxprobe/pkg/provider/stt"
	oaistt "github.com/MrWong99/voxprobe/pkg/provider/stt/openai"
	"github.com/MrWong99/voxprobe/pkg/provider/stt/whisperserver"
	"github.com/MrWong99/voxprobe/pkg/provider/tts"
	oaitts "github.com/MrWong99/voxprobe/pkg/provider/tts/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	promptText := flag.String("prompt", "", "probe prompt text (overrides -prompt-file)")
	promptFile := flag.String("prompt-file", "prompt.txt", "path to a file containing the probe prompt")
	verify := flag.Bool("verify", false, "record, transcribe, and classify the model's reply")
	listDevices := flag.Bool("list-devices", false, "print the audio device table and exit")
	flag.Parse()

	// ── Environment ───────────────────────────────────────────────────────────
	// A missing .env file is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "voxprobe: load .env: %v\n", err)
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxprobe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxprobe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Audio host ────────────────────────────────────────────────────────────
	host, err := device.NewPortAudioHost()
	if err != nil {
		slog.Error("failed to initialise audio subsystem", "err", err)
		return 1
	}
	defer func() {
		if err := host.Close(); err != nil {
			slog.Warn("audio subsystem close error", "err", err)
		}
	}()

	if *listDevices {
		dir, err := device.NewDirectory(host)
		if err != nil {
			slog.Error("failed to enumerate devices", "err", err)
			return 1
		}
		fmt.Print(dir.Describe())
		return 0
	}

	prompt, err := loadPrompt(*promptText, *promptFile)
	if err != nil {
		slog.Error("failed to load prompt", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voxprobe",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	m := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	svc, err := buildServices(cfg, reg, *verify)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Prompt cache ──────────────────────────────────────────────────────────
	var store *cache.Store
	if dir := cfg.Paths.CacheDir; dir != "" {
		store, err = cache.New(dir)
		if err != nil {
			slog.Error("failed to open prompt cache", "err", err)
			return 1
		}
	}

	printStartupSummary(cfg, *verify)

	// ── Session + observability server ────────────────────────────────────────
	session := probe.NewSession(host, sessionConfig(cfg, prompt, *verify), svc, store, m)

	g, gctx := errgroup.WithContext(ctx)

	if addr := cfg.Server.ListenAddr; addr != "" {
		srv := newObservabilityServer(addr, host, cfg, m)
		g.Go(func() error {
			slog.Info("observability server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var result *probe.Result
	g.Go(func() error {
		defer stop() // session end also stops the observability server
		var runErr error
		result, runErr = session.Run(gctx)
		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("session error", "err", err)
		return 1
	}

	if result != nil && result.Verdict != nil {
		printVerdict(result)
	}
	slog.Info("goodbye")
	return 0
}

// loadPrompt returns the probe text from the -prompt flag or, when empty, the
// trimmed contents of the prompt file.
func loadPrompt(text, file string) (string, error) {
	if text != "" {
		return text, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read prompt file %q: %w", file, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %q is empty", file)
	}
	return prompt, nil
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		if voice := config.StringOption(entry, "voice", ""); voice != "" {
			opts = append(opts, oaitts.WithVoice(voice))
		}
		if format := config.StringOption(entry, "format", ""); format != "" {
			opts = append(opts, oaitts.WithFormat(format))
		}
		return oaitts.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper-server", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisperserver.Option
		if entry.Model != "" {
			opts = append(opts, whisperserver.WithModel(entry.Model))
		}
		if lang := config.StringOption(entry, "language", ""); lang != "" {
			opts = append(opts, whisperserver.WithLanguage(lang))
		}
		return whisperserver.New(entry.BaseURL, opts...)
	})

	reg.RegisterEval("openai", func(entry config.ProviderEntry) (eval.Provider, error) {
		var opts []oaieval.Option
		if entry.Model != "" {
			opts = append(opts, oaieval.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaieval.WithBaseURL(entry.BaseURL))
		}
		return oaieval.New(entry.APIKey, opts...)
	})
}

// buildServices instantiates the providers named in cfg. The TTS provider is
// always required; STT and Eval only when verification is requested. When the
// STT entry carries a "fallback_server" option, the primary is wrapped in a
// circuit-breaking fallback group backed by a local whisper.cpp server.
func buildServices(cfg *config.Config, reg *config.Registry, verify bool) (probe.Services, error) {
	svc := probe.Services{}

	p, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return svc, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	svc.TTS = p
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	if !verify {
		return svc, nil
	}

	sttProvider, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return svc, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if fallbackURL := config.StringOption(cfg.Providers.STT, "fallback_server", ""); fallbackURL != "" {
		fb, err := whisperserver.New(fallbackURL)
		if err != nil {
			return svc, fmt.Errorf("create stt fallback: %w", err)
		}
		group := resilience.NewSTTFallback(sttProvider, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		group.AddFallback("whisper-server", fb)
		svc.STT = group
		slog.Info("stt fallback enabled", "fallback", fallbackURL)
	} else {
		svc.STT = sttProvider
	}

	e, err := reg.CreateEval(cfg.Providers.Eval)
	if err != nil {
		return svc, fmt.Errorf("create eval provider %q: %w", cfg.Providers.Eval.Name, err)
	}
	svc.Eval = e
	slog.Info("provider created", "kind", "eval", "name", cfg.Providers.Eval.Name)

	return svc, nil
}

// sessionConfig maps the loaded file config onto the session's own config.
func sessionConfig(cfg *config.Config, prompt string, verify bool) probe.Config {
	outputDir := cfg.Paths.OutputDir
	if outputDir == "" {
		outputDir = "out"
	}
	return probe.Config{
		Prompt:        prompt,
		Microphone:    cfg.Devices.Microphone,
		VirtualOutput: cfg.Devices.VirtualOutput,
		VirtualInput:  cfg.Devices.VirtualInput,
		BotMonitor:    cfg.Devices.BotMonitor,
		Verify:        verify,
		OutputDir:     outputDir,
		Bridge: audio.BridgeConfig{
			SampleRate:    cfg.Bridge.SampleRate,
			BlockSize:     cfg.Bridge.BlockSize,
			QueueCapacity: cfg.Bridge.QueueCapacity,
		},
		Gate: audio.GateConfig{
			Threshold:     cfg.Gate.Threshold,
			Window:        secondsToDuration(cfg.Gate.WindowSeconds),
			FrameDuration: secondsToDuration(cfg.Gate.FrameSeconds),
			SampleRate:    cfg.Record.SampleRate,
		},
		Record: audio.RecorderConfig{
			SampleRate:    cfg.Record.SampleRate,
			Threshold:     cfg.Gate.Threshold,
			SilenceWindow: secondsToDuration(cfg.Record.SilenceSeconds),
			FrameDuration: secondsToDuration(cfg.Gate.FrameSeconds),
			MaxDuration:   secondsToDuration(cfg.Record.MaxSeconds),
		},
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// newObservabilityServer builds the /metrics, /healthz, and /readyz endpoint
// server.
func newObservabilityServer(addr string, host device.Host, cfg *config.Config, m *observe.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(health.DeviceChecker(host,
		cfg.Devices.Microphone,
		cfg.Devices.VirtualOutput,
		cfg.Devices.VirtualInput,
		cfg.Devices.BotMonitor,
	))
	h.Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(m)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, verify bool) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         voxprobe — session setup      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("TTS", providerLabel(cfg.Providers.TTS))
	printEntry("STT", providerLabel(cfg.Providers.STT))
	printEntry("Eval", providerLabel(cfg.Providers.Eval))
	printEntry("Microphone", cfg.Devices.Microphone)
	printEntry("Virtual out", cfg.Devices.VirtualOutput)
	printEntry("Virtual in", cfg.Devices.VirtualInput)
	printEntry("Bot monitor", cfg.Devices.BotMonitor)
	if verify {
		printEntry("Verify", "enabled")
	} else {
		printEntry("Verify", "disabled")
	}
	if cfg.Server.ListenAddr != "" {
		printEntry("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(entry config.ProviderEntry) string {
	if entry.Name == "" {
		return "(not configured)"
	}
	if entry.Model != "" {
		return entry.Name + " / " + entry.Model
	}
	return entry.Name
}

func printEntry(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s   : %-19s ║\n", kind, value)
}

func printVerdict(res *probe.Result) {
	status := "FAILED"
	if res.Verdict.Success {
		status = "SUCCEEDED"
	}
	fmt.Printf("\nprobe %s\n  transcript: %s\n  reason:     %s\n",
		status, res.Transcript, res.Verdict.Reason)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
