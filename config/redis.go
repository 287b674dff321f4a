package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func redisOptions(config RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         config.Addr(),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisClient connects and pings, exiting the process if Redis is down.
func NewRedisClient(config RedisConfig) *redis.Client {
	rdb, err := DialRedis(context.Background(), config)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	return rdb
}

// DialRedis is NewRedisClient for callers that can run without Redis.
func DialRedis(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(redisOptions(config))
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", config.Addr(), err)
	}
	log.Printf("Redis connected: %s", pong)
	return rdb, nil
}
