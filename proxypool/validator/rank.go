package validator

import (
	"proxysaringan/proxypool/model"
	"sort"
)

// Rank 按总延迟升序排序，延迟相同的报告保持输入顺序。返回新切片，不修改输入。
func Rank(reports []model.ProxyReport) []model.ProxyReport {
	ranked := make([]model.ProxyReport, len(reports))
	copy(ranked, reports)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalLatency < ranked[j].TotalLatency
	})
	return ranked
}
