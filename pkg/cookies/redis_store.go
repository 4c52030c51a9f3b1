package cookies

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"liscraper/pkg/logger"
)

const redisKeyPrefix = "liscraper:cookies:"

// RedisStore keeps cookie sets in Redis so several hosts can share sessions
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// RedisOptions configures NewRedisStore
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long a set survives without being refreshed; zero keeps it forever
	TTL time.Duration
}

// NewRedisStore connects and pings the server
func NewRedisStore(ctx context.Context, opts RedisOptions, log logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreWithClient(client, opts.TTL, log), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisStore{client: client, ttl: ttl, log: log}
}

func redisKey(identity string) string {
	return redisKeyPrefix + Key(identity)
}

func (r *RedisStore) Load(ctx context.Context, identity string) (*Set, error) {
	data, err := r.client.Get(ctx, redisKey(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.log.WithError(err).Warn("cookie lookup failed, treating as absent")
		return nil, nil
	}

	set := decode(data, identity)
	if set == nil {
		r.log.WarnWithFields("ignoring corrupt cookie entry", map[string]interface{}{"key": redisKey(identity)})
	}
	return set, nil
}

func (r *RedisStore) Save(ctx context.Context, set *Set) error {
	data, err := encode(set)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKey(set.Identity), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var identities []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		if set := decode(data, ""); set != nil && set.Identity != "" {
			identities = append(identities, set.Identity)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cookie keys: %w", err)
	}
	sort.Strings(identities)
	return identities, nil
}

func (r *RedisStore) Invalidate(ctx context.Context, identity string) error {
	if err := r.client.Del(ctx, redisKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}

// Close releases the client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
