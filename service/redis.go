package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tejashriiii/OilSpill/config"
)

// RedisService caches rendered PNGs keyed by upload content hash and
// endpoint, so repeated uploads of the same image skip inference.
type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetRender returns the cached PNG for key, or nil on a miss.
func (s *RedisService) GetRender(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, "render:"+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// SetRender stores a rendered PNG under key with the configured TTL.
func (s *RedisService) SetRender(ctx context.Context, key string, png []byte) error {
	return s.client.Set(ctx, "render:"+key, png, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
