package validator

import (
	"context"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"sync"
)

// DefaultProxyConcurrency 是单个代理同时在途的探测数上限。
const DefaultProxyConcurrency = 10

// Validator 对单个代理并发探测全部目标，并执行“全部成功才接受”的规则。
type Validator struct {
	prober      Prober
	targets     []string
	concurrency int
}

// NewValidator 创建一个 Validator。targets 按顺序保存，决定报告中探测结果的顺序。
func NewValidator(prober Prober, targets []string, concurrency int) *Validator {
	if concurrency <= 0 {
		concurrency = DefaultProxyConcurrency
	}
	return &Validator{
		prober:      prober,
		targets:     append([]string(nil), targets...),
		concurrency: concurrency,
	}
}

// Targets 返回配置的目标站点。
func (v *Validator) Targets() []string {
	return append([]string(nil), v.targets...)
}

// Validate 探测全部目标并等待所有探测结束，第一次失败后也不会提前取消其余探测。
// 全部成功时返回报告；否则返回 nil，这是正常结果而不是错误。
// 目标集合为空时视为全部成功。
func (v *Validator) Validate(ctx context.Context, p model.ProxyAddress) *model.ProxyReport {
	results := v.probeAll(ctx, p)

	report := &model.ProxyReport{
		Proxy:  p,
		Probes: results,
	}
	for _, r := range results {
		if !r.Success {
			l := logger.WithComponent("ProxyPool/Validator")
			l.Debug().
				Str("proxy", string(p)).
				Str("target", r.Target).
				Str("fault", r.Fault.Kind.String()).
				Str("reason", r.Fault.Error()).
				Msg("Proxy rejected.")
			return nil
		}
		report.TotalLatency += r.Latency
	}
	return report
}

// probeAll 以 v.concurrency 为上限并发探测，结果按目标顺序排列。
func (v *Validator) probeAll(ctx context.Context, p model.ProxyAddress) []model.ProbeResult {
	results := make([]model.ProbeResult, len(v.targets))
	if len(v.targets) == 0 {
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.concurrency)

	for i, target := range v.targets {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(idx int, t string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[idx] = v.safeProbe(ctx, p, t)
		}(i, target)
	}

	wg.Wait()
	return results
}

// safeProbe 将 Prober 的 panic 归类为传输故障。
func (v *Validator) safeProbe(ctx context.Context, p model.ProxyAddress, target string) (res model.ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.ProbeResult{
				Target: target,
				Fault:  &model.ProbeFault{Kind: model.FaultTransport, Reason: "probe panicked"},
			}
		}
	}()

	res = v.prober.Probe(ctx, p, target)
	res.Target = target
	if !res.Success && res.Fault == nil {
		res.Fault = &model.ProbeFault{Kind: model.FaultTransport, Reason: "probe failed"}
	}
	return res
}
