// Package file provides a file-backed key-value store. Each key is stored
// as one gzip-compressed file under the base directory.
package file

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fidde/signal_explorer/pkg/models"
)

// FileExtension is appended to every stored key's escaped name.
const FileExtension = ".kv.gz"

// Store persists each key as one compressed file. Writes go through a
// temporary file and rename, so readers never observe a partial value.
// Separate processes sharing a directory remain last-writer-wins.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates a file store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating kvstore directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.keyPath(key)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("key %s: %w", key, models.ErrKeyNotFound)
	}

	data, err := readGzip(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return data, nil
}

// Set stores value under key, replacing any existing value.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyPath(key)
	tmp := path + ".tmp"

	if err := writeGzip(tmp, value); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing key file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing key file: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing key file: %w", err)
	}
	return nil
}

// List returns all keys in sorted order.
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading kvstore directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}
		escaped := strings.TrimSuffix(entry.Name(), FileExtension)
		key, err := url.PathUnescape(escaped)
		if err != nil {
			continue // Skip files with foreign names
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}

// keyPath maps a key to its file, escaping separators so keys like
// "catalog/datasources" stay within the base directory.
func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+FileExtension)
}

// writeGzip writes data to a gzip-compressed file.
func writeGzip(path string, data []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	gw := gzip.NewWriter(file)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// readGzip reads data from a gzip-compressed file.
func readGzip(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
