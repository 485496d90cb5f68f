package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/temoins-console/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var _ tokenstore.Store = (*RedisStore)(nil)

const opTimeout = 2 * time.Second

// RedisStore keeps session values in Redis under prefix+key, so several console processes
// on one workstation share a session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client, prefix), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(k tokenstore.Key) string {
	return s.prefix + string(k)
}

func (s *RedisStore) Get(key tokenstore.Key) string {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return ""
	}
	if err != nil {
		log.Err(err).Str("key", string(key)).Msg("redis session read failed")
		return ""
	}
	return value
}

func (s *RedisStore) Set(key tokenstore.Key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		log.Err(err).Str("key", string(key)).Msg("redis session write failed")
	}
}

func (s *RedisStore) Clear(key tokenstore.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		log.Err(err).Str("key", string(key)).Msg("redis session delete failed")
	}
}

// ClearSession deletes all session keys with a single DEL, which Redis applies atomically.
// On Redis Cluster the prefix must contain a hash tag, e.g. "{temoins}:session:", so the
// keys share a slot; otherwise the DEL fails with CROSSSLOT.
func (s *RedisStore) ClearSession() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	keys := make([]string, 0, len(tokenstore.SessionKeys))
	for _, k := range tokenstore.SessionKeys {
		keys = append(keys, s.key(k))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.Err(err).Msg("redis session clear failed")
	}
}
