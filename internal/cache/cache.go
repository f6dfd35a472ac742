// Package cache implements a flat content-addressed store for synthesized
// prompt audio. Artifacts are keyed by the SHA-256 of the exact prompt text,
// so re-running the same probe never pays for synthesis twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store is a flat directory of synthesized audio artifacts. The zero value is
// not usable; create one with [New].
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Key returns the cache key for text: the hex SHA-256 of its UTF-8 bytes.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// path returns the artifact location for text in the given container format.
func (s *Store) path(text, format string) string {
	return filepath.Join(s.dir, fmt.Sprintf("prompt_%s.%s", Key(text), format))
}

// Fetch copies the cached artifact for text to dst and reports a hit. A miss
// returns (false, nil); the caller should synthesize and then Store.
func (s *Store) Fetch(text, format, dst string) (bool, error) {
	src := s.path(text, format)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("cache: stat %q: %w", src, err)
	}
	if err := copyFile(src, dst); err != nil {
		return false, fmt.Errorf("cache: fetch: %w", err)
	}
	return true, nil
}

// Store copies the freshly synthesized artifact at src into the cache under
// the key for text.
func (s *Store) Store(text, format, src string) error {
	if err := copyFile(src, s.path(text, format)); err != nil {
		return fmt.Errorf("cache: store: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
