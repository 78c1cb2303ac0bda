package scraper

import (
	"context"
	"fmt"
	"proxysaringan/internal/shared/types"
	"proxysaringan/proxypool/model"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// Scraper 接口定义了从代理源获取候选代理列表的行为。
type Scraper interface {
	// Scrape 执行一次阻塞的抓取，返回候选代理地址。
	// 实现者只负责抓取和初步解析，不进行验证，也不去重。
	// 任何错误都意味着本次刷新周期失败，不返回部分结果。
	Scrape(ctx context.Context) ([]model.ProxyAddress, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// StatusError 表示代理源返回了非 2xx 状态码。
type StatusError struct {
	Source     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-2xx status code (%d) from %s (%s)", e.StatusCode, e.Source, e.URL)
}

// SplitLines 按换行切分文本，去除首尾空白并丢弃空行。
func SplitLines(text string) []model.ProxyAddress {
	lines := strings.Split(text, "\n")
	proxies := make([]model.ProxyAddress, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		proxies = append(proxies, model.ProxyAddress(line))
	}
	return proxies
}

// New 根据配置的来源类型创建抓取器。
func New(conf types.SourceConf) (Scraper, error) {
	timeout := time.Duration(conf.TimeoutSeconds) * time.Second
	switch conf.Type {
	case types.SourceTypeRaw, "":
		return NewRawTextScraper(conf.URL, timeout), nil
	case types.SourceTypeHTML:
		return NewHTMLTableScraper(conf.URL, conf.Selector, timeout), nil
	case types.SourceTypePattern:
		pages := conf.Pages
		if len(pages) == 0 {
			pages = []string{conf.URL}
		}
		return NewPatternScraper(pages, conf.Pattern, timeout)
	default:
		return nil, fmt.Errorf("unknown source type %q", conf.Type)
	}
}
