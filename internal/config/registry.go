package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/voxprobe/pkg/provider/eval"
	"github.com/MrWong99/voxprobe/pkg/provider/stt"
	"github.com/MrWong99/voxprobe/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	tts  map[string]func(ProviderEntry) (tts.Provider, error)
	stt  map[string]func(ProviderEntry) (stt.Provider, error)
	eval map[string]func(ProviderEntry) (eval.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		tts:  make(map[string]func(ProviderEntry) (tts.Provider, error)),
		stt:  make(map[string]func(ProviderEntry) (stt.Provider, error)),
		eval: make(map[string]func(ProviderEntry) (eval.Provider, error)),
	}
}

// RegisterTTS registers a TTS provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterSTT registers an STT provider factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterEval registers an eval provider factory under name.
func (r *Registry) RegisterEval(name string, factory func(ProviderEntry) (eval.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eval[name] = factory
}

// CreateTTS instantiates a TTS provider using the factory registered under entry.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates an STT provider using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEval instantiates an eval provider using the factory registered under entry.Name.
func (r *Registry) CreateEval(entry ProviderEntry) (eval.Provider, error) {
	r.mu.RLock()
	factory, ok := r.eval[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: eval/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// StringOption returns the string value of an entry option, or def when the
// option is absent or not a string.
func StringOption(entry ProviderEntry, key, def string) string {
	if v, ok := entry.Options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}
