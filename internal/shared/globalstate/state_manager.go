package globalstate

import (
	"sync"
	"time"
)

// StatusManager 记录进程当前所处的阶段，例如 "Idle"、"Validating 120 proxies"。
// 它使用 RWMutex 来保护并发读写。
type StatusManager struct {
	mu      sync.RWMutex
	status  string
	changed time.Time
}

// GlobalStatus 是全局的阶段记录，由刷新周期写入，由状态 API 读取。
var GlobalStatus = &StatusManager{status: "Idle", changed: time.Now()}

// Set 更新当前阶段。
func (sm *StatusManager) Set(newStatus string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.status = newStatus
	sm.changed = time.Now()
}

// Get 返回当前阶段。
func (sm *StatusManager) Get() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.status
}

// Since 返回当前阶段已持续的时间。
func (sm *StatusManager) Since() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.changed)
}
