package config

import (
	"os"
	"path/filepath"
)

type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreFile   StoreBackend = "file"
	StoreRedis  StoreBackend = "redis"
)

type StoreConfig interface {
	GetStoreBackend() StoreBackend
	GetStoreFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
}

type Store struct {
	v values
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() StoreBackend {
	return StoreBackend(s.v.get("STORE_BACKEND", string(StoreFile)))
}

func (s Store) GetStoreFile() string {
	def := "session.json"
	if dir, err := os.UserConfigDir(); err == nil {
		def = filepath.Join(dir, "temoins-console", "session.json")
	}
	return s.v.get("STORE_FILE", def)
}

func (s Store) GetRedisAddr() string {
	return s.v.get("REDIS_ADDR", "localhost:6379")
}

func (s Store) GetRedisPassword() string {
	return s.v.get("REDIS_PASSWORD", "")
}

// GetRedisPrefix returns the key prefix. The default carries a {hash tag} so every session
// key lands in one cluster slot and ClearSession's multi-key DEL works on Redis Cluster.
func (s Store) GetRedisPrefix() string {
	return s.v.get("REDIS_PREFIX", "{temoins}:session:")
}
