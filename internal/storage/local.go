package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// metaSuffix marks the JSON sidecar file carrying upload metadata
const metaSuffix = ".meta"

// LocalStorage archives uploads on the local filesystem, one file per key
// plus an optional metadata sidecar
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the archive root if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %s: %w", basePath, err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Put writes content under the key, replacing any previous version
func (s *LocalStorage) Put(ctx context.Context, key string, content []byte, metadata *Metadata) error {
	path := s.resolve(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	if metadata == nil {
		return nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", key, err)
	}
	if err := os.WriteFile(path+metaSuffix, encoded, 0o644); err != nil {
		return fmt.Errorf("write metadata for %s: %w", key, err)
	}
	return nil
}

// Get reads the content stored under the key
func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(s.resolve(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return content, nil
}

// GetInfo returns size, checksum, and any stored metadata without the content
func (s *LocalStorage) GetInfo(ctx context.Context, key string) (*FileInfo, error) {
	path := s.resolve(key)

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}

	info := &FileInfo{
		Key:        key,
		Size:       stat.Size(),
		Checksum:   ComputeChecksum(content),
		ModifiedAt: stat.ModTime(),
	}

	if raw, err := os.ReadFile(path + metaSuffix); err == nil {
		var meta Metadata
		if json.Unmarshal(raw, &meta) == nil {
			info.Metadata = &meta
			info.ContentType = meta.ContentType
		}
	}
	return info, nil
}

// Exists reports whether a file is stored under the key
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.resolve(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a file and its metadata sidecar. Deleting an absent key is
// not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path := s.resolve(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	os.Remove(path + metaSuffix)
	return nil
}

// List returns every stored key with the given prefix, sidecars excluded
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, metaSuffix) {
			return err
		}
		rel, relErr := filepath.Rel(s.basePath, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return keys, nil
}

// resolve maps a key to a path inside basePath. The key is rooted before
// cleaning so ".." components cannot escape the archive.
func (s *LocalStorage) resolve(key string) string {
	clean := strings.TrimPrefix(filepath.Clean("/"+key), "/")
	return filepath.Join(s.basePath, clean)
}

// ComputeChecksum returns the hex SHA-256 of content
func ComputeChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
