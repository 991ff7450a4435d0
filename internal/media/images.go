// Package media stores uploaded warning images on disk.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store writes images under Dir, created on first save. Filenames embed a
// millisecond timestamp so successive uploads never collide and old images
// stay on disk for manual rollback.
type Store struct {
	dir string
	now func() time.Time // test hook
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Save writes data to a fresh warning_<unix-ms>.jpg and returns its path.
func (s *Store) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create assets dir: %w", err)
	}
	name := fmt.Sprintf("warning_%d.jpg", s.now().UnixMilli())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("media: write image: %w", err)
	}
	return path, nil
}
