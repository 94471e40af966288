package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/dumpit"
)

// assetStripes is the number of locks hashes are spread over.
const assetStripes = 64

// ImagesDir returns the directory images are stored in for an output file.
func ImagesDir(output string) string {
	return filepath.Join(filepath.Dir(output), "images")
}

// Ensure AssetStore implements dumpit.AssetStore at compile time.
var _ dumpit.AssetStore = (*AssetStore)(nil)

// AssetStore writes image assets to a directory as <hash>.<ext>.
//
// The check-then-write sequence for a hash runs under one of a fixed set of
// locks chosen by the hash, so writes of different assets proceed in
// parallel while a given hash is written at most once. Files are written to
// a temporary name and renamed into place.
type AssetStore struct {
	dir     string
	stripes [assetStripes]sync.Mutex

	mu    sync.Mutex
	known map[string]string
}

// NewAssetStore creates an AssetStore rooted at dir. The directory is
// created on first write.
func NewAssetStore(dir string) *AssetStore {
	return &AssetStore{
		dir:   dir,
		known: make(map[string]string),
	}
}

// Store writes data as <hash>.<ext> unless an asset with hash is already
// stored. It returns the asset path and whether this call wrote it.
func (s *AssetStore) Store(ctx context.Context, hash, ext string, data []byte) (string, bool, error) {
	if !validName(hash) || !validName(ext) {
		return "", false, dumpit.Errorf(dumpit.EINVALID, "invalid asset name %q.%q", hash, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	lock := &s.stripes[xxhash.Sum64String(hash)%assetStripes]
	lock.Lock()
	defer lock.Unlock()

	if path, ok := s.lookup(hash); ok {
		return path, false, nil
	}

	path := filepath.Join(s.dir, hash+"."+ext)
	if _, err := os.Stat(path); err == nil {
		s.register(hash, path)
		return path, false, nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", false, fmt.Errorf("creating images directory: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", false, fmt.Errorf("writing asset %s: %w", filepath.Base(path), err)
	}

	s.register(hash, path)
	return path, true, nil
}

func (s *AssetStore) lookup(hash string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.known[hash]
	return path, ok
}

func (s *AssetStore) register(hash, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[hash] = path
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// validName reports whether s is a non-empty run of ASCII letters and digits.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
