package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"txdecoder/internal/api"
	"txdecoder/internal/config"
	"txdecoder/internal/logging"
	"txdecoder/internal/output"
	"txdecoder/internal/shutdown"
	"txdecoder/internal/txdecoder"
)

var (
	configPath = flag.String("config", config.DefaultConfigPath, "配置文件路径")
	port       = flag.Int("port", 0, "API 服务端口，0 表示使用配置")
	publish    = flag.Bool("publish", false, "把解码结果转发到配置的输出")
	verbose    = flag.Bool("verbose", false, "详细输出")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *port > 0 {
		cfg.API.Port = *port
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		logrus.Fatalf("初始化日志失败: %v", err)
	}

	decoder, pool, err := txdecoder.Build(cfg, logger)
	if err != nil {
		logger.Fatalf("创建解码器失败: %v", err)
	}

	var outputter output.Output
	if *publish {
		outputter, err = output.NewOutput(cfg.Output, cfg.Registry(), logger)
		if err != nil {
			logger.Fatalf("创建输出器失败: %v", err)
		}
	}

	server := api.NewServer(decoder, cfg.Registry(), outputter, logger, cfg.API)

	gs := shutdown.NewGracefulShutdown(30*time.Second, logger)
	gs.Register("api-server", server.Stop, 0)
	if outputter != nil {
		gs.Register("output", func(context.Context) error { return outputter.Close() }, 1)
	}
	gs.Register("rpc-pool", func(context.Context) error { pool.Close(); return nil }, 2)

	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("启动服务器失败: %v", err)
			gs.Shutdown()
		}
	}()

	logger.Infof("API服务器已启动，监听端口: %d", cfg.API.Port)

	if err := gs.Wait(); err != nil {
		logger.Errorf("关闭服务器失败: %v", err)
	}
	logger.Info("服务器已关闭")
}
