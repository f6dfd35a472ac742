// Package openai provides a TTS provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/voxprobe/pkg/provider/tts"
)

// Defaults applied when the corresponding option is not set.
const (
	DefaultModel  = "tts-1"
	DefaultVoice  = "alloy"
	DefaultFormat = "wav"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	model   string
	voice   string
	format  string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel sets the speech model (e.g., "tts-1", "tts-1-hd").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithVoice sets the voice name (e.g., "alloy", "nova").
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = voice
	}
}

// WithFormat sets the output container format (e.g., "wav", "mp3").
// Note that only "wav" artifacts can be played back by the local player.
func WithFormat(format string) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements tts.Provider using the OpenAI speech endpoint.
type Provider struct {
	client oai.Client
	model  string
	voice  string
	format string
}

// New constructs a new OpenAI TTS Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	cfg := &config{
		model:  DefaultModel,
		voice:  DefaultVoice,
		format: DefaultFormat,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  cfg.model,
		voice:  cfg.voice,
		format: cfg.format,
	}, nil
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, w io.Writer) error {
	res, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Voice:          oai.AudioSpeechNewParamsVoice(p.voice),
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(p.format),
	})
	if err != nil {
		return fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer res.Body.Close()

	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("openai tts: read audio: %w", err)
	}
	return nil
}

// Format implements tts.Provider.
func (p *Provider) Format() string {
	return p.format
}
