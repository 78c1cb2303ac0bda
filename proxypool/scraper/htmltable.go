package scraper

import (
	"context"
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"net"
	"net/http"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"strconv"
	"strings"
	"time"
)

// HTMLTableScraper 从 HTML 表格中提取代理，每行前两列为 IP 和端口。
type HTMLTableScraper struct {
	url      string
	selector string
	client   *http.Client
}

// NewHTMLTableScraper 创建一个新的 HTMLTableScraper 实例。
func NewHTMLTableScraper(url, selector string, timeout time.Duration) *HTMLTableScraper {
	return &HTMLTableScraper{
		url:      url,
		selector: selector,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTMLTableScraper) Name() string {
	return "html-table"
}

func (s *HTMLTableScraper) Scrape(ctx context.Context) ([]model.ProxyAddress, error) {
	l := logger.WithComponent("ProxyPool/Scraper")
	l.Info().Str("source", s.Name()).Str("url", s.url).Msg("Starting scrape...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", s.Name(), err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page for %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Source: s.Name(), URL: s.url, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", s.Name(), err)
	}

	proxies := make([]model.ProxyAddress, 0)
	doc.Find(s.selector).Each(func(j int, sel *goquery.Selection) {
		cells := sel.Find("td")
		ip := strings.TrimSpace(cells.Eq(0).Text())
		portStr := strings.TrimSpace(cells.Eq(1).Text())

		if ip == "" || portStr == "" {
			return
		}

		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			l.Warn().Str("ip", ip).Str("port", portStr).Msg("Failed to parse port, skipping.")
			return
		}

		proxies = append(proxies, model.ProxyAddress(net.JoinHostPort(ip, strconv.Itoa(port))))
	})

	l.Info().Int("count", len(proxies)).Str("source", s.Name()).Msg("Scrape finished.")
	return proxies, nil
}
