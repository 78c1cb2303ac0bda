package app

import (
	"fmt"
	"io"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/internal/shared/types"
	manager "proxysaringan/proxypool"
	"proxysaringan/proxypool/scraper"
	"proxysaringan/proxypool/storage"
	"proxysaringan/proxypool/validator"
	"time"
)

type components struct {
	scraper   scraper.Scraper
	scheduler *validator.Scheduler
	storage   *storage.FileStorage
	manager   *manager.Manager
}

// buildComponents 将配置转换为一条完整的 抓取 -> 验证 -> 持久化 流水线。
// out 接收控制台进度行，其余观察者（如 Hub）一并收到进度事件。
func buildComponents(cfg *types.Config, out io.Writer, observers ...validator.Observer) (*components, error) {
	src, err := scraper.New(cfg.SourceConf)
	if err != nil {
		return nil, fmt.Errorf("build scraper: %w", err)
	}

	probeTimeout := time.Duration(cfg.CommonConf.ProbeTimeoutSeconds) * time.Second
	prober := validator.NewHTTPProber(probeTimeout, cfg.CommonConf.InsecureSkipVerify)
	v := validator.NewValidator(prober, cfg.CommonConf.Targets, cfg.CommonConf.ProxyConcurrency)

	multi := validator.MultiObserver{validator.NewConsoleObserver(out)}
	multi = append(multi, observers...)
	sched := validator.NewScheduler(v, cfg.CommonConf.GlobalConcurrency, multi)

	st := storage.NewFileStorage(cfg.StorageConf.Output)
	ttl := time.Duration(cfg.CacheConf.TTLSeconds) * time.Second
	mgr := manager.NewManager(src, sched, st, ttl)

	logger.Info().
		Str("source", src.Name()).
		Int("targets", len(v.Targets())).
		Str("probe_timeout", prober.Timeout().String()).
		Int("proxy_concurrency", cfg.CommonConf.ProxyConcurrency).
		Int("global_concurrency", cfg.CommonConf.GlobalConcurrency).
		Msgf("Proxy pipeline ready, results go to %s", st.Path())

	return &components{
		scraper:   src,
		scheduler: sched,
		storage:   st,
		manager:   mgr,
	}, nil
}
