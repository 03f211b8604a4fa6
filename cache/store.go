package cache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is the bytes persistence behind a Cache.
//
// Implementations must make Put atomic for a key: a reader sees either the
// previous bytes or the new ones. Puts on different keys must not block each other.
type Store interface {
	// Get returns the bytes stored under key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the bytes stored under key.
	Put(ctx context.Context, key string, data []byte, fetchedAt time.Time) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	Close() error
}

// DiskStore keeps one file per key in a directory.
type DiskStore struct {
	dir string
}

// NewDiskStore returns a store in dir, creating it if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *DiskStore) Dir() string { return s.dir }

// path returns the file holding key. Keys contain '/' and '?' so they are hashed.
func (s *DiskStore) path(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%x.json", sha1.Sum([]byte(key))))
}

func (s *DiskStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	return data, err
}

// Put writes to a temporary file and renames it over the entry.
func (s *DiskStore) Put(ctx context.Context, key string, data []byte, fetchedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	// mtime mirrors fetched_at, it is informative only.
	_ = os.Chtimes(tmp, fetchedAt, fetchedAt)
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Clear removes entries and leftover temporary files.
func (s *DiskStore) Clear(_ context.Context) error {
	var errs []error
	for _, pattern := range []string{"*.json", ".tmp-*"} {
		files, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *DiskStore) Close() error { return nil }

// MemoryStore is an in-process Store, entries never expire by themselves.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return bytes.Clone(v.([]byte)), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ time.Time) error {
	s.c.Set(key, bytes.Clone(data), gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.c.Flush()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of entries.
func (s *MemoryStore) Len() int { return s.c.ItemCount() }
