package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/config"
	"github.com/jackyeh168/loyalty_crm/src/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var configPath, mode string
	flag.StringVar(&configPath, "config", "", "設定檔路徑（預設依序搜尋 ./config.yml、./etc/config.yml）")
	flag.StringVar(&mode, "mode", modeAll, "啟動模式: all（預設）, api, worker")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "載入設定失敗: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, mode, log)
	stop()
	if err != nil {
		log.Error("server_exit", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	log.Info("server_stopped")
	logger.Sync()
}
