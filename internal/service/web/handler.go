package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"proxysaringan/internal/shared/globalstate"
	"proxysaringan/internal/shared/logger"
	manager "proxysaringan/proxypool"
	"proxysaringan/proxypool/model"
	"proxysaringan/proxypool/storage"
	"time"
)

// ProxyProvider defines what the web handler needs from the result cache.
// This decouples the web package from the manager's construction.
type ProxyProvider interface {
	GetCurrent(ctx context.Context) ([]model.ProxyReport, error)
	Entry() (*model.CacheEntry, bool)
	IsFresh() bool
	TTL() time.Duration
}

var _ ProxyProvider = (*manager.Manager)(nil)

type Handler struct {
	provider ProxyProvider
	now      func() time.Time
}

func NewHandler(provider ProxyProvider) *Handler {
	return &Handler{
		provider: provider,
		now:      time.Now,
	}
}

// StatusResponse 是 GET /api/status 的响应体
type StatusResponse struct {
	Phase        string          `json:"phase"`
	PhaseSeconds float64         `json:"phase_seconds"` // 当前阶段已持续的秒数
	Fresh        bool            `json:"fresh"`
	CycleID      string          `json:"cycle_id,omitempty"`
	Timestamp    *time.Time      `json:"timestamp,omitempty"`
	AgeSeconds   float64         `json:"age_seconds"`
	TTLSeconds   float64         `json:"ttl_seconds"`
	Count        int             `json:"count"`
	Summary      *SummaryPayload `json:"summary,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleGetProxies 处理 GET /api/proxies 请求。缓存过期时会同步执行一次完整刷新。
func (h *Handler) HandleGetProxies(w http.ResponseWriter, r *http.Request) {
	l := logger.WithComponent("Web")

	reports, err := h.provider.GetCurrent(r.Context())
	if err != nil {
		var persistErr *manager.PersistError
		switch {
		case errors.As(err, &persistErr):
			l.Warn().Err(err).Msg("Serving fresh proxies despite persistence failure.")
			w.Header().Set("X-Persist-Error", persistErr.Error())
		case errors.Is(err, context.Canceled):
			return
		default:
			l.Error().Err(err).Msg("Failed to refresh proxy list.")
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, storage.ToRecords(reports))
}

// HandleStatus 处理 GET /api/status 请求，从不触发刷新。
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Phase:        globalstate.GlobalStatus.Get(),
		PhaseSeconds: globalstate.GlobalStatus.Since().Seconds(),
		Fresh:        h.provider.IsFresh(),
		TTLSeconds:   h.provider.TTL().Seconds(),
	}
	if entry, ok := h.provider.Entry(); ok {
		ts := entry.Timestamp
		summary := summaryPayload(entry.Summary)
		resp.CycleID = entry.ID
		resp.Timestamp = &ts
		resp.AgeSeconds = entry.Age(h.now()).Seconds()
		resp.Count = len(entry.Reports)
		resp.Summary = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to write JSON response")
	}
}
