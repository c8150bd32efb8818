package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gotomicro/ego/core/econf"
	"github.com/gotomicro/ego/core/elog"
	"gopkg.in/yaml.v2"

	"github.com/vervana-io/fastfast-common/internal/ioc"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	f, err := os.Open(*configPath)
	if err != nil {
		elog.Panic("打开配置文件失败", elog.FieldErr(err), elog.String("path", *configPath))
	}
	if err := econf.LoadFromReader(f, yaml.Unmarshal); err != nil {
		elog.Panic("加载配置失败", elog.FieldErr(err))
	}
	_ = f.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := ioc.InitApp(ctx)
	logger := elog.DefaultLogger
	logger.Info("订单事件 worker 启动")
	app.Loop.Run(ctx)
	logger.Info("订单事件 worker 退出")
}
