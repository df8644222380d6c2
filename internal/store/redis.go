package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const prefsKeyPrefix = "bgtutor:prefs:"

// Redis keeps preferences in Redis, one JSON value per user.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to addr. A zero ttl keeps preferences forever.
func OpenRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Preferences(ctx context.Context, user string) (Preferences, error) {
	data, err := r.client.Get(ctx, prefsKeyPrefix+user).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	p := DefaultPreferences()
	if err := json.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("decoding preferences: %w", err)
	}
	return p, nil
}

func (r *Redis) SavePreferences(ctx context.Context, user string, p Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, prefsKeyPrefix+user, data, r.ttl).Err()
}
