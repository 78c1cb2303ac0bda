package model

import (
	"fmt"
	"time"
)

// ProxyAddress 标识一个代理端点: "host:port", 可带 "user:pass@" 凭据和 scheme 前缀。
// 引擎本身从不对其去重。
type ProxyAddress string

// FaultKind 区分一次探测失败的类别。
type FaultKind int

const (
	// FaultTimeout 表示在超时时间内没有收到响应。
	FaultTimeout FaultKind = iota + 1
	// FaultHTTPStatus 表示收到了响应，但状态码不是 200。
	FaultHTTPStatus
	// FaultTransport 表示连接拒绝、DNS 失败、TLS 错误等传输层故障。
	FaultTransport
)

func (k FaultKind) String() string {
	switch k {
	case FaultTimeout:
		return "timeout"
	case FaultHTTPStatus:
		return "http_status"
	case FaultTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ProbeFault 是探测失败的带标签描述，按值返回，从不作为 panic 或 error 抛出。
type ProbeFault struct {
	Kind       FaultKind
	StatusCode int    // 仅 FaultHTTPStatus 有效
	Reason     string // FaultTimeout / FaultTransport 的故障描述
}

// Error 返回持久化到 "error" 字段的文本。
func (f *ProbeFault) Error() string {
	if f.Kind == FaultHTTPStatus {
		return fmt.Sprintf("Response code: %d", f.StatusCode)
	}
	return f.Reason
}

// ProbeResult 是通过一个代理对一个目标站点进行一次计时请求的结果。
type ProbeResult struct {
	Target  string
	Success bool
	// Latency 仅在收到响应时有效 (成功，或非 200 状态)。
	Latency time.Duration
	Fault   *ProbeFault
}

// HasLatency 报告该结果是否携带了测得的往返时间。
func (r ProbeResult) HasLatency() bool {
	return r.Success || (r.Fault != nil && r.Fault.Kind == FaultHTTPStatus)
}

// LatencySeconds 返回以秒为单位的延迟。调用前应先检查 HasLatency。
func (r ProbeResult) LatencySeconds() float64 {
	return r.Latency.Seconds()
}

// ProxyReport 是一个代理全部探测的汇总。
// 只有当所有探测都成功时，报告才会出现在任何输出集合中。
type ProxyReport struct {
	Proxy        ProxyAddress
	Probes       []ProbeResult // 与配置的目标顺序一致
	TotalLatency time.Duration // 所有探测延迟之和
}

// Clone 返回报告的深拷贝，修改副本不会影响原报告。
func (r ProxyReport) Clone() ProxyReport {
	probes := make([]ProbeResult, len(r.Probes))
	for i, p := range r.Probes {
		if p.Fault != nil {
			f := *p.Fault
			p.Fault = &f
		}
		probes[i] = p
	}
	r.Probes = probes
	return r
}

// CloneReports 深拷贝一组报告，保持顺序。
func CloneReports(reports []ProxyReport) []ProxyReport {
	out := make([]ProxyReport, len(reports))
	for i, r := range reports {
		out[i] = r.Clone()
	}
	return out
}

// TotalSeconds 返回以秒为单位的总延迟。
func (r ProxyReport) TotalSeconds() float64 {
	return r.TotalLatency.Seconds()
}

// Progress 是批量验证过程中的实时计数。
type Progress struct {
	Completed int `json:"completed"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

// BatchSummary 在整批代理验证结束后计算。
type BatchSummary struct {
	Total       int           `json:"total"`
	Accepted    int           `json:"accepted"`
	Rejected    int           `json:"rejected"`
	Elapsed     time.Duration `json:"elapsed"`
	SuccessRate float64       `json:"success_rate"`
}

// NewBatchSummary 根据计数构造汇总，Total 为 0 时成功率为 0。
func NewBatchSummary(total, accepted int, elapsed time.Duration) BatchSummary {
	s := BatchSummary{
		Total:    total,
		Accepted: accepted,
		Rejected: total - accepted,
		Elapsed:  elapsed,
	}
	if total > 0 {
		s.SuccessRate = float64(accepted) / float64(total)
	}
	return s
}

// CacheEntry 是一次完整刷新周期的产物，存入缓存后不再修改。
type CacheEntry struct {
	ID        string // 刷新周期 ID
	Timestamp time.Time
	Reports   []ProxyReport // 已排序
	Summary   BatchSummary
}

// Age 返回条目在 now 时刻的年龄。
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}
