// Package config provides the configuration schema, loader, and provider
// registry for the voxprobe session orchestrator.
package config

// LogLevel controls log verbosity for voxprobe.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxprobe.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Devices   DevicesConfig   `yaml:"devices"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Gate      GateConfig      `yaml:"gate"`
	Record    RecordConfig    `yaml:"record"`
	Paths     PathsConfig     `yaml:"paths"`
}

// ServerConfig holds the observability endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the metrics/health server listens on
	// (e.g., "localhost:9090"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// boundary service. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	TTS  ProviderEntry `yaml:"tts"`
	STT  ProviderEntry `yaml:"stt"`
	Eval ProviderEntry `yaml:"eval"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "whisper-server").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// The OPENAI_API_KEY environment variable overrides this for openai
	// providers.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "tts-1", "whisper-1", "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above (e.g., "voice", "format", "language").
	Options map[string]any `yaml:"options"`
}

// DevicesConfig names the four audio endpoints a probing session uses.
// Microphone and VirtualOutput are matched exactly against the device
// directory; VirtualInput and BotMonitor are matched by substring.
//
// The cable keys are named from voxprobe's point of view, which runs against
// the labels cable drivers print: audio voxprobe sends is played INTO the
// driver's "CABLE Input" leg, and the model's reply comes back on its
// "CABLE Output" leg. So virtual_input and virtual_output both usually name
// a "CABLE Input" device, and bot_monitor a "CABLE Output" one.
type DevicesConfig struct {
	// Microphone is the physical capture device forwarded into the bridge.
	Microphone string `yaml:"microphone"`

	// VirtualOutput is the virtual cable endpoint the bridge plays into
	// (typically the driver's "CABLE Input" leg).
	VirtualOutput string `yaml:"virtual_output"`

	// VirtualInput is the virtual cable endpoint the synthesized prompt is
	// played to — the leg the probed model hears (also a "CABLE Input" leg).
	VirtualInput string `yaml:"virtual_input"`

	// BotMonitor is the loopback device carrying the probed model's voice
	// (typically the driver's "CABLE Output" leg). The silence gate and the
	// recorder both listen here.
	BotMonitor string `yaml:"bot_monitor"`
}

// BridgeConfig tunes the realtime microphone bridge.
type BridgeConfig struct {
	// SampleRate in Hz. 0 uses the capture device's default rate.
	SampleRate int `yaml:"sample_rate"`

	// BlockSize is the number of frames per callback block. 0 uses 2048.
	BlockSize int `yaml:"block_size"`

	// QueueCapacity bounds the frame queue between the capture and playback
	// callbacks. 0 uses 100.
	QueueCapacity int `yaml:"queue_capacity"`
}

// GateConfig tunes the silence gate that delays the session until the probed
// model has stopped speaking.
type GateConfig struct {
	// Threshold is the mean absolute 16-bit amplitude below which a frame
	// counts as silent. 0 uses 500.
	Threshold float64 `yaml:"threshold"`

	// WindowSeconds is how long the monitor must stay silent before the
	// gate opens. 0 uses 2.0.
	WindowSeconds float64 `yaml:"window_seconds"`

	// FrameSeconds is the duration of one analysis frame. 0 uses 0.1.
	FrameSeconds float64 `yaml:"frame_seconds"`
}

// RecordConfig tunes the response recorder.
type RecordConfig struct {
	// MaxSeconds caps a single recording. 0 uses 10.
	MaxSeconds float64 `yaml:"max_seconds"`

	// SilenceSeconds is the trailing-silence window that ends a recording
	// early. 0 uses 1.5.
	SilenceSeconds float64 `yaml:"silence_seconds"`

	// SampleRate in Hz for recordings. 0 uses 44100.
	SampleRate int `yaml:"sample_rate"`
}

// PathsConfig holds filesystem locations for session artifacts.
type PathsConfig struct {
	// OutputDir receives per-session artifacts (prompt audio, recordings).
	OutputDir string `yaml:"output_dir"`

	// CacheDir holds the content-addressed synthesized-prompt cache.
	CacheDir string `yaml:"cache_dir"`
}
