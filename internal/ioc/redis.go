package ioc

import (
	"github.com/gotomicro/ego/core/econf"
	"github.com/redis/go-redis/v9"

	redismetrics "github.com/vervana-io/fastfast-common/internal/pkg/redis/metrics"
)

func InitRedisClient() *redis.Client {
	type Config struct {
		Addr     string
		Password string
	}
	var cfg Config
	if err := econf.UnmarshalKey("redis", &cfg); err != nil {
		panic(err)
	}
	cmd := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	cmd = redismetrics.WithMetrics(cmd)
	return cmd
}
