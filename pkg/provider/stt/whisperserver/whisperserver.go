// Package whisperserver provides an STT provider backed by a locally running
// whisper.cpp server (the whisper-server binary exposing POST /inference).
// It is a fallback for air-gapped setups where the OpenAI API is unavailable.
package whisperserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/voxprobe/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	language string
	model    string
	timeout  time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithLanguage sets the BCP-47 language hint sent to the server (e.g., "en").
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithModel sets the model hint forwarded to the server (e.g., "base.en").
// When empty the server uses whichever model it was started with.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout. Defaults to 30 s; batch
// inference on CPU can be slow.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements stt.Provider against a whisper.cpp REST server.
type Provider struct {
	serverURL  string
	language   string
	model      string
	httpClient *http.Client
}

// New constructs a Provider for the whisper.cpp server at serverURL
// (e.g., "http://localhost:8080").
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("whisperserver: serverURL must not be empty")
	}
	cfg := &config{timeout: 30 * time.Second}
	for _, o := range opts {
		o(cfg)
	}
	return &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   cfg.language,
		model:      cfg.model,
		httpClient: &http.Client{Timeout: cfg.timeout},
	}, nil
}

// Transcribe implements stt.Provider. The file at path is uploaded as-is in a
// multipart form; whisper-server accepts WAV input directly.
func (p *Provider) Transcribe(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("whisperserver: read %q: %w", path, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("whisperserver: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("whisperserver: write audio: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return "", fmt.Errorf("whisperserver: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("whisperserver: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisperserver: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisperserver: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisperserver: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisperserver: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisperserver: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisperserver: parse JSON response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}
