package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"proxysaringan/internal/app"
	"proxysaringan/internal/shared/config"
	"proxysaringan/internal/shared/logger"
	manager "proxysaringan/proxypool"
	"syscall"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	serve := flag.Bool("serve", false, "Run the HTTP API until interrupted instead of validating once")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "proxysaringan.ini")

	// 1. 加载 .ini 配置，文件不存在时使用默认值
	cfg, err := config.Load(iniPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 组装流水线
	appServer, err := app.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 运行
	if *serve {
		if err := appServer.Serve(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	path, err := appServer.RunOnce(ctx)
	if err != nil {
		var persistErr *manager.PersistError
		if errors.As(err, &persistErr) {
			logger.Error().Err(err).Msg("Validation finished but results could not be saved")
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("Failed to get working proxies")
		os.Exit(1)
	}
	fmt.Printf("Saved working proxies to %s\n", path)
}
