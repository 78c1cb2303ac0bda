package validator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"golang.org/x/net/proxy"
	"io"
	"net"
	"net/http"
	"net/url"
	"proxysaringan/proxypool/model"
	"strings"
	"time"
)

const (
	// DefaultProbeTimeout 是单次探测的超时时间。
	DefaultProbeTimeout = 5 * time.Second

	// 读取响应体的上限，只为让连接可以被复用。
	maxDrainBytes = 64 << 10

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"
)

// Prober 通过一个代理对一个目标执行一次计时请求。
// 实现者必须把所有故障归类到返回值中，不能 panic。
type Prober interface {
	Probe(ctx context.Context, p model.ProxyAddress, target string) model.ProbeResult
}

// HTTPProber 是基于 net/http 的 Prober 实现。
type HTTPProber struct {
	timeout            time.Duration
	insecureSkipVerify bool
}

// NewHTTPProber 创建一个 HTTPProber，timeout <= 0 时使用 DefaultProbeTimeout。
func NewHTTPProber(timeout time.Duration, insecureSkipVerify bool) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{
		timeout:            timeout,
		insecureSkipVerify: insecureSkipVerify,
	}
}

// Timeout 返回单次探测的超时时间。
func (pr *HTTPProber) Timeout() time.Duration {
	return pr.timeout
}

// Probe 通过代理 p 向 target 发送一次 GET 请求。
// 延迟为从发出请求到收到响应头的时间。
func (pr *HTTPProber) Probe(ctx context.Context, p model.ProxyAddress, target string) model.ProbeResult {
	result := model.ProbeResult{Target: target}

	transport, err := pr.newTransport(p)
	if err != nil {
		result.Fault = &model.ProbeFault{Kind: model.FaultTransport, Reason: err.Error()}
		return result
	}
	defer transport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, pr.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Fault = &model.ProbeFault{Kind: model.FaultTransport, Reason: err.Error()}
		return result
	}
	req.Header.Set("User-Agent", userAgent)

	client := &http.Client{Transport: transport}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		result.Fault = classifyError(err)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	result.Latency = elapsed
	if resp.StatusCode != http.StatusOK {
		result.Fault = &model.ProbeFault{Kind: model.FaultHTTPStatus, StatusCode: resp.StatusCode}
		return result
	}
	result.Success = true
	return result
}

// newTransport 为一个代理构建独立的 Transport。
// http/https 代理走 Transport.Proxy，socks5 代理由 x/net/proxy 提供拨号器。
func (pr *HTTPProber) newTransport(p model.ProxyAddress) (*http.Transport, error) {
	proxyURL, err := ParseProxyURL(p)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   pr.timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: pr.insecureSkipVerify},
		TLSHandshakeTimeout:   pr.timeout,
		ResponseHeaderTimeout: pr.timeout,
		IdleConnTimeout:       pr.timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}

	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		socksDialer, err := proxy.FromURL(proxyURL, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socksDialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", proxyURL.Host)
		}
		transport.DialContext = contextDialer.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
	return transport, nil
}

// ParseProxyURL 将代理地址解析为 URL，未带 scheme 的地址按 http 代理处理。
func ParseProxyURL(p model.ProxyAddress) (*url.URL, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return nil, errors.New("empty proxy address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", string(p), err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("invalid proxy address %q: expected host:port", string(p))
	}
	return u, nil
}

// classifyError 区分超时与其他传输层故障。
func classifyError(err error) *model.ProbeFault {
	if isTimeout(err) {
		return &model.ProbeFault{Kind: model.FaultTimeout, Reason: err.Error()}
	}
	return &model.ProbeFault{Kind: model.FaultTransport, Reason: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
