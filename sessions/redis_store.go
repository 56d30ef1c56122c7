package sessions

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jrsteele09/auction-storefront/internal/errors"
	"github.com/rs/zerolog"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the record as one string value under the storage key.
// SET replaces the value in a single command.
type RedisStore struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

func NewRedisStore(client *redis.Client, key string, options ...StoreOption) *RedisStore {
	o := applyStoreOptions(options)
	return &RedisStore{client: client, key: key, logger: o.logger}
}

// DialRedisStore connects to redisURL and checks the connection
func DialRedisStore(ctx context.Context, redisURL, key string, options ...StoreOption) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStore(client, key, options...), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, session Session) error {
	data, err := Marshal(session)
	if err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "marshal session: %s", err.Error())
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "redis set: %s", err.Error())
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Session, bool) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("Unable to read session record")
		}
		return Session{}, false
	}

	session, ok := Unmarshal(data)
	if !ok {
		s.logger.Warn().Str("key", s.key).Msg("Ignoring corrupt session record")
	}
	return session, ok
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.Wrapf(errors.ErrCredentialStoreWrite, "redis del: %s", err.Error())
	}
	return nil
}
