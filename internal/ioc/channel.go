package ioc

import (
	"context"

	"github.com/gotomicro/ego/core/econf"

	"github.com/vervana-io/fastfast-common/internal/firestore"
	"github.com/vervana-io/fastfast-common/internal/service/channel"
	channelmetrics "github.com/vervana-io/fastfast-common/internal/service/channel/metrics"
	channeltracing "github.com/vervana-io/fastfast-common/internal/service/channel/tracing"
)

// InitFCMChannel 安卓推送，套上指标和链路追踪装饰器
func InitFCMChannel(ctx context.Context) channel.PushChannel {
	var cfg channel.FCMConfig
	if err := econf.UnmarshalKey("fcm", &cfg); err != nil {
		panic(err)
	}
	ch, err := channel.NewFCMChannel(ctx, cfg)
	if err != nil {
		panic(err)
	}
	return channelmetrics.NewChannel("fcm", channeltracing.NewChannel("fcm", ch))
}

func InitAPNsChannel() channel.APNsSender {
	var cfg channel.APNsConfig
	if err := econf.UnmarshalKey("apns", &cfg); err != nil {
		panic(err)
	}
	ch, err := channel.NewAPNsChannel(cfg)
	if err != nil {
		panic(err)
	}
	return ch
}

func InitPusherChannel() channel.RealtimeSender {
	var cfg channel.PusherConfig
	if err := econf.UnmarshalKey("pusher", &cfg); err != nil {
		panic(err)
	}
	ch, err := channel.NewPusherChannel(cfg)
	if err != nil {
		panic(err)
	}
	return ch
}

func InitFirestoreClient() *firestore.Client {
	var cfg firestore.Config
	if err := econf.UnmarshalKey("firestore", &cfg); err != nil {
		panic(err)
	}
	client, err := firestore.NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}
