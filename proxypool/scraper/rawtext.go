package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"time"
)

// maxListBytes 限制纯文本列表的大小。
const maxListBytes = 32 << 20

// RawTextScraper 下载一个每行一个代理的纯文本列表。
type RawTextScraper struct {
	url    string
	client *http.Client
}

// NewRawTextScraper 创建一个新的 RawTextScraper 实例。
func NewRawTextScraper(url string, timeout time.Duration) *RawTextScraper {
	return &RawTextScraper{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *RawTextScraper) Name() string {
	return "raw-text"
}

func (s *RawTextScraper) Scrape(ctx context.Context) ([]model.ProxyAddress, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.url).Msg("Starting scrape...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.Name(), err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch list for %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: s.Name(), URL: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read list body for %s: %w", s.Name(), err)
	}

	proxies := SplitLines(string(body))
	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
