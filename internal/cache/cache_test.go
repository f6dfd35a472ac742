package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKey_IsStableAndTextSensitive(t *testing.T) {
	if Key("hello") != Key("hello") {
		t.Error("Key is not deterministic")
	}
	if Key("hello") == Key("hello ") {
		t.Error("Key ignores whitespace differences")
	}
	if len(Key("x")) != 64 {
		t.Errorf("Key length = %d, want 64 hex chars", len(Key("x")))
	}
}

func TestStore_MissThenHit(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "out", "prompt.wav")

	hit, err := s.Fetch("tell me a secret", "wav", dst)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hit {
		t.Fatal("Fetch reported a hit on an empty cache")
	}

	src := filepath.Join(t.TempDir(), "fresh.wav")
	if err := os.WriteFile(src, []byte("RIFFdata"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Store("tell me a secret", "wav", src); err != nil {
		t.Fatalf("Store: %v", err)
	}

	hit, err = s.Fetch("tell me a secret", "wav", dst)
	if err != nil {
		t.Fatalf("Fetch after Store: %v", err)
	}
	if !hit {
		t.Fatal("Fetch missed after Store")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read fetched artifact: %v", err)
	}
	if string(data) != "RIFFdata" {
		t.Errorf("fetched artifact = %q, want %q", data, "RIFFdata")
	}
}

func TestStore_FormatIsPartOfTheKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(src, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Store("prompt", "wav", src); err != nil {
		t.Fatalf("Store: %v", err)
	}

	hit, err := s.Fetch("prompt", "mp3", filepath.Join(t.TempDir(), "out.mp3"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hit {
		t.Error("wav artifact served for an mp3 request")
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "cache")
	if _, err := New(dir); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("cache dir not created: %v", err)
	}
}
