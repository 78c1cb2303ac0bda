package app

import (
	"context"
	"fmt"
	"os"
	"proxysaringan/internal/service/web"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/internal/shared/types"
	manager "proxysaringan/proxypool"
	"proxysaringan/proxypool/storage"
	"sync"
	"time"
)

// shutdownTimeout 是关闭 HTTP API 时等待进行中请求的最长时间。
const shutdownTimeout = 10 * time.Second

// AppServer is the application's main struct.
type AppServer struct {
	cfg *types.Config

	hub       *web.Hub
	storage   *storage.FileStorage
	manager   *manager.Manager
	webServer *web.Server

	waitGroup sync.WaitGroup
	stopOnce  sync.Once
}

// New 根据配置组装抓取器、验证器、调度器、存储和缓存管理器。
// 进度同时输出到 stdout 和 WebSocket Hub。
func New(cfg *types.Config) (*AppServer, error) {
	s := &AppServer{
		cfg: cfg,
		hub: web.NewHub(),
	}

	components, err := buildComponents(cfg, os.Stdout, s.hub)
	if err != nil {
		return nil, err
	}
	s.storage = components.storage
	s.manager = components.manager
	return s, nil
}

// Manager 返回结果缓存管理器。
func (s *AppServer) Manager() *manager.Manager {
	return s.manager
}

// RunOnce 执行一次 GetCurrent 并返回结果文件的路径。
// 持久化失败时返回 *manager.PersistError。
func (s *AppServer) RunOnce(ctx context.Context) (string, error) {
	reports, err := s.manager.GetCurrent(ctx)
	if err != nil {
		return "", err
	}
	logger.Info().Int("working", len(reports)).Msg("Validation finished.")
	return s.storage.Path(), nil
}

// Serve 启动 Hub 和 HTTP API，阻塞直到 ctx 被取消，然后优雅退出。
func (s *AppServer) Serve(ctx context.Context) error {
	logger.Info().Msg("Starting server in 'serve' mode...")

	s.waitGroup.Add(1)
	go func() {
		defer s.waitGroup.Done()
		s.hub.Run() // 启动 Hub
	}()

	srv, err := web.StartServer(&s.waitGroup, s.cfg.WebConf, s.manager, s.hub)
	if err != nil {
		s.Stop()
		return fmt.Errorf("start web server: %w", err)
	}
	s.webServer = srv
	if srv == nil {
		logger.Warn().Msg("Nothing to serve. Web port is not set.")
		s.Stop()
		return nil
	}

	<-ctx.Done()
	logger.Info().Msg("Signal received, shutting down...")
	s.Stop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *AppServer) Stop() {
	s.stopOnce.Do(func() {
		if s.webServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.webServer.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Web server did not shut down cleanly.")
			}
		}
		s.hub.Stop()
		s.waitGroup.Wait()
		logger.Info().Msg("Server stopped.")
	})
}
