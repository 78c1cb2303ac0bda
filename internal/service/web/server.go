package web

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"net"
	"net/http"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/internal/shared/types"
	"sync"
	"time"
)

// basicAuthMiddleware 检查 user 和 pass 是否已配置。
// 如果配置了，它将强制执行 HTTP Basic Authentication。
func basicAuthMiddleware(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// 如果用户名或密码未设置，则不启用认证，直接返回原始处理器
		if user == "" || pass == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || p != pass {
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte("Unauthorized.\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter 组装 HTTP API 的路由。
func NewRouter(conf types.WebConf, provider ProxyProvider, hub *Hub) http.Handler {
	handler := NewHandler(provider)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// 公开的状态 API 与 WebSocket 进度推送
	r.Get("/api/status", handler.HandleStatus)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	})

	// 认证保护的 API
	r.Group(func(r chi.Router) {
		r.Use(basicAuthMiddleware(conf.User, conf.Password))
		r.Get("/api/proxies", handler.HandleGetProxies)
	})

	return r
}

// Server 是 HTTP API 的生命周期封装。
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// StartServer 在 conf.Port 上启动 HTTP API。Port <= 0 时返回 nil, nil。
func StartServer(wg *sync.WaitGroup, conf types.WebConf, provider ProxyProvider, hub *Hub) (*Server, error) {
	l := logger.WithComponent("Web")
	if conf.Port <= 0 {
		l.Info().Msg("HTTP API is disabled (port is 0 or not set).")
		return nil, nil
	}

	addr := fmt.Sprintf("0.0.0.0:%d", conf.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           NewRouter(conf, provider, hub),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}

	l.Info().Msgf("HTTP API is listening on http://%s", listener.Addr())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("Web server error.")
		}
		l.Info().Msg("Web server stopped.")
	}()

	return s, nil
}

// Addr 返回实际监听的地址。
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Shutdown 优雅地停止服务器。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
