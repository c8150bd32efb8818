package ioc

import (
	"context"

	"github.com/gotomicro/ego/core/econf"
	dlockRedis "github.com/meoying/dlock-go/redis"

	"github.com/vervana-io/fastfast-common/internal/pkg/idempotent"
	"github.com/vervana-io/fastfast-common/internal/pkg/loopjob"
	"github.com/vervana-io/fastfast-common/internal/repository"
	"github.com/vervana-io/fastfast-common/internal/repository/dao"
	devicesvc "github.com/vervana-io/fastfast-common/internal/service/device"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
	ordersvc "github.com/vervana-io/fastfast-common/internal/service/order"
	"github.com/vervana-io/fastfast-common/internal/worker"
)

// App 订单事件 worker 的完整依赖图
type App struct {
	Worker *worker.QueueWorker
	// Loop 分布式锁保证多实例下只有一个在消费
	Loop *loopjob.InfiniteLoop
}

func InitApp(ctx context.Context) *App {
	db := InitDB()
	rdb := InitRedisClient()

	deviceRepo := repository.NewUserDeviceRepository(dao.NewUserDeviceDAO(db))
	riderRepo := repository.NewRiderRepository(dao.NewRiderDAO(db))
	requestRepo := repository.NewRiderOrderRequestRepository(dao.NewRiderOrderRequestDAO(db))
	notificationRepo := repository.NewNotificationRepository(dao.NewNotificationDAO(db))

	var senderCfg notification.Config
	if err := econf.UnmarshalKey("notification", &senderCfg); err != nil {
		panic(err)
	}
	sender := notification.NewSender(
		devicesvc.NewService(deviceRepo),
		InitFCMChannel(ctx),
		InitAPNsChannel(),
		InitPusherChannel(),
		InitFirestoreClient(),
		riderRepo,
		requestRepo,
		notificationRepo,
		senderCfg,
	)

	orderWorker := worker.NewOrderEventWorker(
		InitConsumer(InitSQSClient(ctx)),
		ordersvc.NewServices(sender),
		idempotent.NewRedisService(rdb, "order_events"),
	)
	queueWorker := worker.NewQueueWorker(orderWorker)
	loop := loopjob.NewInfiniteLoop(dlockRedis.NewClient(rdb), queueWorker.Start, "order_events_worker")
	return &App{
		Worker: queueWorker,
		Loop:   loop,
	}
}
