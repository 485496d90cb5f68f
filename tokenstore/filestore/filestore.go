package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/rs/zerolog/log"
)

var _ tokenstore.Store = (*FileStore)(nil)

// FileStore persists session values as a JSON object so a session survives between
// console invocations. Every mutation rewrites the file.
type FileStore struct {
	path   string
	values map[tokenstore.Key]string
	lock   sync.RWMutex
}

// Open loads the store at path, creating parent directories as needed. A missing file
// yields an empty store.
func Open(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("filestore.Open mkdir: %w", err)
	}
	fs := &FileStore{
		path:   path,
		values: make(map[tokenstore.Key]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore.Open read: %w", err)
	}
	if len(data) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(data, &fs.values); err != nil {
		return nil, fmt.Errorf("filestore.Open decode %s: %w", path, err)
	}
	// a file holding `null` decodes to a nil map
	if fs.values == nil {
		fs.values = make(map[tokenstore.Key]string)
	}
	return fs, nil
}

func (fs *FileStore) Path() string {
	return fs.path
}

func (fs *FileStore) Get(key tokenstore.Key) string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.values[key]
}

func (fs *FileStore) Set(key tokenstore.Key, value string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.values[key] = value
	fs.persist()
}

func (fs *FileStore) Clear(key tokenstore.Key) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if _, ok := fs.values[key]; !ok {
		return
	}
	delete(fs.values, key)
	fs.persist()
}

func (fs *FileStore) ClearSession() {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	for _, k := range tokenstore.SessionKeys {
		delete(fs.values, k)
	}
	fs.persist()
}

// persist must be called with the write lock held.
func (fs *FileStore) persist() {
	if err := fs.write(); err != nil {
		log.Err(err).Str("path", fs.path).Msg("failed to persist session store")
	}
}

func (fs *FileStore) write() error {
	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".session-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.path)
}
