package manager

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"proxysaringan/internal/shared/globalstate"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"proxysaringan/proxypool/scraper"
	"proxysaringan/proxypool/storage"
	"proxysaringan/proxypool/validator"
	"sync"
	"time"
)

// DefaultTTL 是缓存结果的默认有效期。
const DefaultTTL = 1800 * time.Second

const refreshKey = "refresh"

// PersistError 表示刷新成功但写入存储失败。此时新结果仍然已存入内存缓存。
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist working proxies: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// BatchRunner 对候选列表执行验证并返回排序后的结果。
type BatchRunner interface {
	Run(ctx context.Context, proxies []model.ProxyAddress) ([]model.ProxyReport, model.BatchSummary)
}

var _ BatchRunner = (*validator.Scheduler)(nil)

// Manager 持有唯一的缓存条目，是结果缓存的总控制器。
// 条目新鲜时直接返回；过期或不存在时执行完整的 抓取 -> 验证 -> 排序 -> 持久化 -> 存储 周期。
type Manager struct {
	scraper scraper.Scraper
	runner  BatchRunner
	storage storage.Storage
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	entry *model.CacheEntry

	refreshGroup singleflight.Group
}

// Option 用于定制 Manager。
type Option func(*Manager)

// WithClock 替换时间来源，用于测试。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager 创建并初始化结果缓存管理器。ttl <= 0 时使用 DefaultTTL。
func NewManager(s scraper.Scraper, runner BatchRunner, st storage.Storage, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		scraper: s,
		runner:  runner,
		storage: st,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL 返回缓存有效期。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Entry 返回当前缓存条目，不会触发刷新。返回的条目只读。
func (m *Manager) Entry() (*model.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entry, m.entry != nil
}

// IsFresh 报告当前是否存在未过期的条目。
func (m *Manager) IsFresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.freshLocked()
}

func (m *Manager) freshLocked() bool {
	return m.entry != nil && m.entry.Age(m.now()) < m.ttl
}

// GetCurrent 返回排序后的可用代理。
// 条目新鲜时不产生任何网络活动；否则执行一次完整刷新。
// 并发的过期调用者共享同一次刷新。
// 抓取失败时返回错误且缓存保持不变；持久化失败时同时返回新结果和 *PersistError。
func (m *Manager) GetCurrent(ctx context.Context) ([]model.ProxyReport, error) {
	l := logger.WithComponent("ProxyPool/Manager")

	m.mu.RLock()
	if m.freshLocked() {
		reports := model.CloneReports(m.entry.Reports)
		m.mu.RUnlock()
		l.Info().Msg("Using cached proxy list")
		return reports, nil
	}
	m.mu.RUnlock()

	ch := m.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		// 刷新期间其他调用者可能刚完成一次刷新，这里再检查一次。
		m.mu.RLock()
		if m.freshLocked() {
			entry := m.entry
			m.mu.RUnlock()
			return entry, nil
		}
		m.mu.RUnlock()

		// 刷新不随触发它的调用者取消，所有已派发的探测都会运行到结束。
		entry, err := m.refresh(context.WithoutCancel(ctx))
		if entry == nil {
			return nil, err
		}
		return entry, err
	})

	select {
	case res := <-ch:
		if res.Val == nil {
			return nil, res.Err
		}
		// 所有共享这次刷新的调用者各自拿到一份副本，缓存条目本身不可被修改。
		return model.CloneReports(res.Val.(*model.CacheEntry).Reports), res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh 执行完整刷新周期。只有 singleflight 内部会调用它。
func (m *Manager) refresh(ctx context.Context) (*model.CacheEntry, error) {
	cycleID := uuid.NewString()
	l := logger.WithComponent("ProxyPool/Manager").With().Str("cycle_id", cycleID).Logger()
	l.Info().Msg("Fetching and testing new proxy list")

	globalstate.GlobalStatus.Set("Fetching candidate list")
	defer globalstate.GlobalStatus.Set("Idle")

	proxies, err := m.scraper.Scrape(ctx)
	if err != nil {
		l.Error().Err(err).Str("source", m.scraper.Name()).Msg("Failed to fetch candidate list. Keeping previous cache.")
		return nil, fmt.Errorf("fetch candidate list: %w", err)
	}

	globalstate.GlobalStatus.Set(fmt.Sprintf("Validating %d proxies", len(proxies)))
	reports, summary := m.runner.Run(ctx, proxies)

	globalstate.GlobalStatus.Set("Saving results")
	persistErr := m.storage.Save(reports)

	entry := &model.CacheEntry{
		ID:        cycleID,
		Timestamp: m.now(),
		Reports:   reports,
		Summary:   summary,
	}
	m.mu.Lock()
	m.entry = entry
	m.mu.Unlock()

	if persistErr != nil {
		l.Error().Err(persistErr).Msg("Failed to save working proxies. In-memory cache is still updated.")
		return entry, &PersistError{Err: persistErr}
	}

	l.Info().Int("working", len(reports)).Msg("Refresh cycle finished.")
	return entry, nil
}
