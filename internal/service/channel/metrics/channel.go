// Package metrics 为推送渠道添加指标收集的装饰器
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/service/channel"
)

// Channel 为推送渠道实现添加指标收集的装饰器
type Channel struct {
	channel             channel.PushChannel
	sendDurationSummary *prometheus.SummaryVec
	sendCounter         *prometheus.CounterVec
	sendStatusCounter   *prometheus.CounterVec
	name                string
}

// NewChannel 创建一个新的带有指标收集的推送渠道
func NewChannel(name string, ch channel.PushChannel) *Channel {
	sendDurationSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "push_channel_send_duration_seconds",
			Help:       "推送渠道发送耗时统计（秒）",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
			MaxAge:     time.Minute * 5,
		},
		[]string{"channel"},
	)

	sendCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_channel_send_total",
			Help: "推送渠道发送 token 总数",
		},
		[]string{"channel"},
	)

	sendStatusCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_channel_send_status_total",
			Help: "推送渠道单 token 投递状态统计",
		},
		[]string{"channel", "status"},
	)

	// 注册指标
	prometheus.MustRegister(sendDurationSummary, sendCounter, sendStatusCounter)

	return &Channel{
		channel:             ch,
		sendDurationSummary: sendDurationSummary,
		sendCounter:         sendCounter,
		sendStatusCounter:   sendStatusCounter,
		name:                name,
	}
}

// Send 发送推送并记录指标
func (c *Channel) Send(ctx context.Context, messages []channel.TokenMessage) ([]domain.DispatchResult, error) {
	startTime := time.Now()

	c.sendCounter.WithLabelValues(c.name).Add(float64(len(messages)))

	results, err := c.channel.Send(ctx, messages)

	duration := time.Since(startTime).Seconds()
	for _, result := range results {
		c.sendStatusCounter.WithLabelValues(c.name, string(result.Status)).Inc()
	}
	c.sendDurationSummary.WithLabelValues(c.name).Observe(duration)

	return results, err
}
