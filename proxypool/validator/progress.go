package validator

import (
	"fmt"
	"io"
	"proxysaringan/proxypool/model"
	"sync"
)

// Observer 接收批量验证的进度。调度器在同一把锁下依次调用，实现者不应阻塞。
type Observer interface {
	OnProgress(p model.Progress)
	OnComplete(s model.BatchSummary)
}

// NopObserver 丢弃所有进度。
type NopObserver struct{}

func (NopObserver) OnProgress(model.Progress)     {}
func (NopObserver) OnComplete(model.BatchSummary) {}

// MultiObserver 将进度分发给多个观察者。
type MultiObserver []Observer

func (m MultiObserver) OnProgress(p model.Progress) {
	for _, o := range m {
		o.OnProgress(p)
	}
}

func (m MultiObserver) OnComplete(s model.BatchSummary) {
	for _, o := range m {
		o.OnComplete(s)
	}
}

// ConsoleObserver 在终端上原地刷新一行进度，并在结束时打印汇总。
type ConsoleObserver struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsoleObserver creates a ConsoleObserver writing to out.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out}
}

func (c *ConsoleObserver) OnProgress(p model.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, FormatProgress(p))
}

func (c *ConsoleObserver) OnComplete(s model.BatchSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, FormatSummary(s))
}

// FormatProgress 返回以 \r 开头的进度行。
func FormatProgress(p model.Progress) string {
	return fmt.Sprintf("\rProgress: [%d/%d] Success: [%d] Error: [%d]", p.Completed, p.Total, p.Accepted, p.Rejected)
}

// FormatSummary 返回批次结束时的单行汇总。
func FormatSummary(s model.BatchSummary) string {
	return fmt.Sprintf("\nTested %d proxies. Success rate: %.2f%%. Total time: %.3f seconds\n",
		s.Total, s.SuccessRate*100, s.Elapsed.Seconds())
}
