package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/redis/go-redis/v9"
)

type RedisSource struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

func NewRedisSource(cfg RedisConfig) (*RedisSource, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSource{
		client: client,
	}, nil
}

var _ Store = (*RedisSource)(nil)

func keyFor(t maptile.Tile) string {
	return fmt.Sprintf("features:%d:%d:%d", t.Z, t.X, t.Y)
}

func (s *RedisSource) Fetch(ctx context.Context, t maptile.Tile) (fc *geojson.FeatureCollection, err error) {
	defer func(start time.Time) { observe("redis", "fetch", start, err) }(time.Now())

	data, err := s.client.Get(ctx, keyFor(t)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDataUnavailable
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	fc, err = geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode features %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return fc, nil
}

func (s *RedisSource) Put(ctx context.Context, t maptile.Tile, fc *geojson.FeatureCollection) (err error) {
	defer func(start time.Time) { observe("redis", "put", start, err) }(time.Now())

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode features %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}

	if err := s.client.Set(ctx, keyFor(t), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
