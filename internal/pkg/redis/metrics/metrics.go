package metrics

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// 这个客户端只承载幂等标记和 worker 的分布式锁，
// 按命令维度观察耗时和错误就够了
var (
	commandDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "fastfast",
			Subsystem:  "redis",
			Name:       "command_duration_seconds",
			Help:       "Redis command latency by command and status",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"command", "status"},
	)

	pipelineDuration = prometheus.NewSummary(
		prometheus.SummaryOpts{
			Namespace:  "fastfast",
			Subsystem:  "redis",
			Name:       "pipeline_duration_seconds",
			Help:       "Redis pipeline latency",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
	)

	pipelineCommands = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fastfast",
			Subsystem: "redis",
			Name:      "pipeline_commands_total",
			Help:      "Total number of commands sent through Redis pipelines",
		},
	)
)

func init() {
	prometheus.MustRegister(commandDuration, pipelineDuration, pipelineCommands)
}

// Hook 实现 redis.Hook，给每条 Redis 命令打耗时和状态指标
type Hook struct{}

func NewHook() *Hook {
	return &Hook{}
}

func (h *Hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		commandDuration.WithLabelValues(cmd.Name(), statusOf(err)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

func (h *Hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if len(cmds) == 0 {
			return next(ctx, cmds)
		}
		start := time.Now()
		err := next(ctx, cmds)
		pipelineDuration.Observe(time.Since(start).Seconds())
		pipelineCommands.Add(float64(len(cmds)))
		return err
	}
}

// DialHook 连接本身不打指标，透传
func (h *Hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// statusOf redis.Nil 是未命中不是错误
func statusOf(err error) string {
	if err != nil && !errors.Is(err, redis.Nil) {
		return "error"
	}
	return "success"
}

// WithMetrics 给 Redis 客户端挂上指标钩子
func WithMetrics(client *redis.Client) *redis.Client {
	client.AddHook(NewHook())
	return client
}
