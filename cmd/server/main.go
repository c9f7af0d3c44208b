package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/sh4d0wy/fox-backend/internal/chain"
	"github.com/sh4d0wy/fox-backend/internal/config"
	"github.com/sh4d0wy/fox-backend/internal/logger"
	"github.com/sh4d0wy/fox-backend/internal/monitor"
	"github.com/sh4d0wy/fox-backend/internal/repository"
	"github.com/sh4d0wy/fox-backend/internal/router"
	"github.com/sh4d0wy/fox-backend/internal/task"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	if err := setupLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化账本客户端
	chainClient, err := chain.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize chain client: %v", err)
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, chainClient, cfg)

	// 启动定时任务
	taskManager := task.Start(db, cfg)
	defer taskManager.Stop()

	// 启动中奖事件监控
	winnerMonitor, err := monitor.NewWinnerMonitor(chainClient, db, cfg.Monitor)
	if err != nil {
		logger.Fatal("Failed to create winner monitor: %v", err)
	}
	if err := winnerMonitor.Start(); err != nil {
		logger.Fatal("Failed to start winner monitor: %v", err)
	}
	defer winnerMonitor.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// setupLogger 根据配置初始化默认日志器
func setupLogger(cfg config.LogConfig) error {
	level := logger.ParseLogLevel(cfg.GetLevel())

	var l *logger.Logger
	var err error
	if cfg.GetOutput() == "file" {
		l, err = logger.NewWithFileRotation(level, cfg.GetFile())
	} else {
		l, err = logger.New(level)
	}
	if err != nil {
		return err
	}

	logger.SetDefaultLogger(l)
	return nil
}
