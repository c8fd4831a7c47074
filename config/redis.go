package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// RedisConfigured reports whether any Redis address variable is set.
func RedisConfigured() bool { return redisAddr() != "" }

func redisAddr() string {
	for _, k := range []string{"REDIS_ADDR", "REDIS_URI", "REDIS_URL"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// InitRedis connects using REDIS_ADDR, REDIS_URI or REDIS_URL (host:port or
// a redis:// / rediss:// URL).
func InitRedis() error {
	val := redisAddr()

	var opt *redis.Options
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		var err error
		if opt, err = redis.ParseURL(val); err != nil {
			return err
		}
	} else {
		opt = &redis.Options{Addr: val}
	}
	opt.DialTimeout = 5 * time.Second

	RedisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return RedisClient.Ping(ctx).Err()
}
