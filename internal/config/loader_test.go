package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: "localhost:9090"
  log_level: debug
providers:
  tts:
    name: openai
    api_key: sk-test
    model: tts-1
    options:
      voice: alloy
  stt:
    name: openai
    api_key: sk-test
  eval:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
devices:
  microphone: "USB Microphone"
  virtual_output: "CABLE Input (VB-Audio)"
  virtual_input: "cable input"
  bot_monitor: "cable output"
bridge:
  block_size: 2048
  queue_capacity: 100
gate:
  threshold: 500
  window_seconds: 2.0
  frame_seconds: 0.1
record:
  max_seconds: 10
  silence_seconds: 1.5
  sample_rate: 44100
paths:
  output_dir: out
  cache_dir: cache
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Providers.TTS.Name != "openai" {
		t.Errorf("tts name = %q, want openai", cfg.Providers.TTS.Name)
	}
	if got := StringOption(cfg.Providers.TTS, "voice", ""); got != "alloy" {
		t.Errorf("tts voice option = %q, want alloy", got)
	}
	if cfg.Devices.Microphone != "USB Microphone" {
		t.Errorf("microphone = %q", cfg.Devices.Microphone)
	}
	if cfg.Bridge.BlockSize != 2048 || cfg.Bridge.QueueCapacity != 100 {
		t.Errorf("bridge = %+v", cfg.Bridge)
	}
	if cfg.Record.SilenceSeconds != 1.5 {
		t.Errorf("record.silence_seconds = %v, want 1.5", cfg.Record.SilenceSeconds)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
devices:
  microphone: mic
  virtual_output: out
  virtual_input: in
  typo_field: oops
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestLoadFromReader_EnvOverlayFillsOpenAIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	yaml := `
providers:
  tts:
    name: openai
  stt:
    name: whisper-server
    base_url: http://localhost:8080
  eval:
    name: openai
    api_key: sk-explicit
devices:
  microphone: mic
  virtual_output: out
  virtual_input: in
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.TTS.APIKey != "sk-from-env" {
		t.Errorf("tts api_key = %q, want env value", cfg.Providers.TTS.APIKey)
	}
	// Non-openai providers are untouched.
	if cfg.Providers.STT.APIKey != "" {
		t.Errorf("stt api_key = %q, want empty", cfg.Providers.STT.APIKey)
	}
	// An explicit key wins over the environment.
	if cfg.Providers.Eval.APIKey != "sk-explicit" {
		t.Errorf("eval api_key = %q, want sk-explicit", cfg.Providers.Eval.APIKey)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Gate:   GateConfig{Threshold: -1, WindowSeconds: 0.1, FrameSeconds: 0.5},
		Record: RecordConfig{MaxSeconds: 1, SilenceSeconds: 2},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate returned nil for a broken config")
	}
	msg := err.Error()
	for _, want := range []string{
		"server.log_level",
		"devices.microphone is required",
		"devices.virtual_output is required",
		"devices.virtual_input is required",
		"gate.threshold",
		"gate.frame_seconds",
		"record.silence_seconds",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidate_MinimalConfigPasses(t *testing.T) {
	cfg := &Config{
		Devices: DevicesConfig{
			Microphone:    "mic",
			VirtualOutput: "out",
			VirtualInput:  "in",
		},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatal("Load on missing file returned nil error")
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("%q reported invalid", l)
		}
	}
	if LogLevel("verbose").IsValid() {
		t.Error("unknown level reported valid")
	}
}

func TestValidate_EmptyLogLevelAllowed(t *testing.T) {
	cfg := &Config{
		Devices: DevicesConfig{Microphone: "m", VirtualOutput: "o", VirtualInput: "i"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate with empty log level: %v", err)
	}
}
