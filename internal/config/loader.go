package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"tts":  {"openai"},
	"stt":  {"openai", "whisper-server"},
	"eval": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides,
// and validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. OPENAI_API_KEY fills the
// api_key of every provider named "openai" that has none configured, so keys
// can be kept out of config files.
func applyEnv(cfg *Config) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return
	}
	for _, entry := range []*ProviderEntry{
		&cfg.Providers.TTS,
		&cfg.Providers.STT,
		&cfg.Providers.Eval,
	} {
		if entry.Name == "openai" && entry.APIKey == "" {
			entry.APIKey = key
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("eval", cfg.Providers.Eval.Name)

	// Devices
	if cfg.Devices.Microphone == "" {
		errs = append(errs, errors.New("devices.microphone is required"))
	}
	if cfg.Devices.VirtualOutput == "" {
		errs = append(errs, errors.New("devices.virtual_output is required"))
	}
	if cfg.Devices.VirtualInput == "" {
		errs = append(errs, errors.New("devices.virtual_input is required"))
	}
	if cfg.Devices.BotMonitor == "" {
		slog.Warn("devices.bot_monitor is empty; the silence gate and recorder will be unavailable")
	}

	// Bridge
	if cfg.Bridge.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("bridge.sample_rate %d must not be negative", cfg.Bridge.SampleRate))
	}
	if cfg.Bridge.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("bridge.block_size %d must not be negative", cfg.Bridge.BlockSize))
	}
	if cfg.Bridge.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("bridge.queue_capacity %d must not be negative", cfg.Bridge.QueueCapacity))
	}

	// Gate
	if cfg.Gate.Threshold < 0 {
		errs = append(errs, fmt.Errorf("gate.threshold %.1f must not be negative", cfg.Gate.Threshold))
	}
	if cfg.Gate.WindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("gate.window_seconds %.2f must not be negative", cfg.Gate.WindowSeconds))
	}
	if cfg.Gate.FrameSeconds < 0 {
		errs = append(errs, fmt.Errorf("gate.frame_seconds %.2f must not be negative", cfg.Gate.FrameSeconds))
	}
	if cfg.Gate.FrameSeconds > 0 && cfg.Gate.WindowSeconds > 0 && cfg.Gate.FrameSeconds > cfg.Gate.WindowSeconds {
		errs = append(errs, fmt.Errorf("gate.frame_seconds %.2f must not exceed gate.window_seconds %.2f", cfg.Gate.FrameSeconds, cfg.Gate.WindowSeconds))
	}

	// Record
	if cfg.Record.MaxSeconds < 0 {
		errs = append(errs, fmt.Errorf("record.max_seconds %.1f must not be negative", cfg.Record.MaxSeconds))
	}
	if cfg.Record.SilenceSeconds < 0 {
		errs = append(errs, fmt.Errorf("record.silence_seconds %.2f must not be negative", cfg.Record.SilenceSeconds))
	}
	if cfg.Record.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("record.sample_rate %d must not be negative", cfg.Record.SampleRate))
	}
	if cfg.Record.MaxSeconds > 0 && cfg.Record.SilenceSeconds > cfg.Record.MaxSeconds {
		errs = append(errs, fmt.Errorf("record.silence_seconds %.2f must not exceed record.max_seconds %.2f", cfg.Record.SilenceSeconds, cfg.Record.MaxSeconds))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
