package validator

import (
	"context"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"sync"
	"time"
)

// DefaultGlobalConcurrency 是同时在途的代理验证数上限。
const DefaultGlobalConcurrency = 50

// Scheduler 在全局并发上限下对整个候选列表运行 Validator，累积通过的报告并报告进度。
type Scheduler struct {
	validator   *Validator
	concurrency int
	observer    Observer
}

// NewScheduler 创建调度器。observer 为 nil 时不报告进度。
func NewScheduler(v *Validator, concurrency int, observer Observer) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultGlobalConcurrency
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Scheduler{
		validator:   v,
		concurrency: concurrency,
		observer:    observer,
	}
}

// batchState 是一次 Run 的累加器，所有字段由 mu 保护。
type batchState struct {
	mu        sync.Mutex
	total     int
	completed int
	accepted  []model.ProxyReport
	observer  Observer
}

// record 在一个代理验证结束时调用：先累积，再计数，最后在同一把锁下发出进度。
// 因此进度严格单调，Completed == Total 只会出现一次。
func (b *batchState) record(report *model.ProxyReport) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if report != nil {
		b.accepted = append(b.accepted, *report)
	}
	b.completed++
	b.observer.OnProgress(model.Progress{
		Completed: b.completed,
		Accepted:  len(b.accepted),
		Rejected:  b.completed - len(b.accepted),
		Total:     b.total,
	})
}

// Run 验证全部候选代理，返回按总延迟排序的报告和本批次汇总。
// 已派发的验证都会运行到结束，不存在提前取消。
func (s *Scheduler) Run(ctx context.Context, proxies []model.ProxyAddress) ([]model.ProxyReport, model.BatchSummary) {
	l := logger.WithComponent("ProxyPool/Validator")
	start := time.Now()

	state := &batchState{
		total:    len(proxies),
		accepted: make([]model.ProxyReport, 0),
		observer: s.observer,
	}

	if len(proxies) > 0 {
		l.Info().
			Int("count", len(proxies)).
			Int("concurrency", s.concurrency).
			Int("targets", len(s.validator.Targets())).
			Msg("Starting validation batch...")

		var wg sync.WaitGroup
		semaphore := make(chan struct{}, s.concurrency)

		for _, p := range proxies {
			wg.Add(1)
			semaphore <- struct{}{}

			go func(addr model.ProxyAddress) {
				defer wg.Done()
				defer func() { <-semaphore }()

				state.record(s.validator.Validate(ctx, addr))
			}(p)
		}

		wg.Wait()
	}

	summary := model.NewBatchSummary(state.total, len(state.accepted), time.Since(start))
	s.observer.OnComplete(summary)

	l.Info().
		Int("total", summary.Total).
		Int("accepted", summary.Accepted).
		Int("rejected", summary.Rejected).
		Float64("success_rate", summary.SuccessRate).
		Dur("elapsed", summary.Elapsed).
		Msg("Validation batch finished.")

	return Rank(state.accepted), summary
}
