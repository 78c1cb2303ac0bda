package scraper

import (
	"context"
	"fmt"
	"github.com/gocolly/colly/v2"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"regexp"
	"sync"
	"time"
)

// PatternScraper 访问一个或多个页面，从响应体中提取所有匹配正则的 host:port。
// 适用于把代理列表嵌在脚本变量或纯文本块中的来源。
type PatternScraper struct {
	pages   []string
	pattern *regexp.Regexp
	timeout time.Duration
}

// NewPatternScraper 创建一个新的 PatternScraper 实例。
func NewPatternScraper(pages []string, pattern string, timeout time.Duration) (*PatternScraper, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy pattern %q: %w", pattern, err)
	}
	return &PatternScraper{
		pages:   append([]string(nil), pages...),
		pattern: re,
		timeout: timeout,
	}, nil
}

func (s *PatternScraper) Name() string {
	return "pattern"
}

func (s *PatternScraper) Scrape(ctx context.Context) ([]model.ProxyAddress, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Int("pages", len(s.pages)).Msg("Starting scrape...")

	// 每次抓取使用新的 collector，避免回调累积和“已访问”去重。
	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(s.timeout)
	c.Context = ctx

	var proxies []model.ProxyAddress
	var mu sync.Mutex

	c.OnResponse(func(r *colly.Response) {
		matches := s.pattern.FindAll(r.Body, -1)
		if len(matches) == 0 {
			l.Warn().Str("url", r.Request.URL.String()).Msg("No proxies matched in response body.")
			return
		}

		mu.Lock()
		defer mu.Unlock()
		for _, m := range matches {
			proxies = append(proxies, model.ProxyAddress(m))
		}
	})

	var statusCode int
	c.OnError(func(r *colly.Response, err error) {
		l.Error().Err(err).Int("status_code", r.StatusCode).Str("url", r.Request.URL.String()).Msg("Scrape request failed.")
		mu.Lock()
		statusCode = r.StatusCode
		mu.Unlock()
	})

	for _, page := range s.pages {
		l.Debug().Str("url", page).Msg("Visiting page...")
		statusCode = 0
		if err := c.Visit(page); err != nil {
			if statusCode != 0 {
				return nil, &StatusError{Source: s.Name(), URL: page, StatusCode: statusCode}
			}
			return nil, fmt.Errorf("failed to visit %s for %s: %w", page, s.Name(), err)
		}
	}
	c.Wait()

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
