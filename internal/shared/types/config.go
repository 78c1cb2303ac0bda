package types

// 默认值
const (
	DefaultSourceURL         = "https://raw.githubusercontent.com/officialputuid/KangProxy/KangProxy/xResults/RAW.txt"
	DefaultOutputPath        = "workingProxies.json"
	DefaultProbeTimeoutSecs  = 5
	DefaultProxyConcurrency  = 10
	DefaultGlobalConcurrency = 50
	DefaultCacheTTLSeconds   = 1800
	DefaultSourceTimeoutSecs = 30
	SourceTypeRaw            = "raw"
	SourceTypeHTML           = "html"
	SourceTypePattern        = "pattern"
	DefaultHTMLTableSelector = "table tbody tr"
	DefaultProxyLinePattern  = `\b(?:\d{1,3}\.){3}\d{1,3}:\d{1,5}\b`
)

// DefaultTargets 是默认的验证目标站点。
var DefaultTargets = []string{"https://google.com", "https://shopee.co.id"}

// CommonConf 包含验证引擎的参数
type CommonConf struct {
	Targets             []string `ini:"targets" delim:","`
	ProbeTimeoutSeconds int      `ini:"probe_timeout_seconds"`
	ProxyConcurrency    int      `ini:"proxy_concurrency"`  // 单个代理同时在途的探测数
	GlobalConcurrency   int      `ini:"global_concurrency"` // 同时在途的代理验证数
	InsecureSkipVerify  bool     `ini:"insecure_skip_verify"`
}

// CacheConf 控制结果缓存的有效期
type CacheConf struct {
	TTLSeconds int `ini:"ttl_seconds"`
}

// SourceConf 描述候选代理列表的来源
type SourceConf struct {
	Type           string   `ini:"type"` // raw, html, pattern
	URL            string   `ini:"url"`
	Pages          []string `ini:"pages" delim:","` // pattern 类型可抓取多个页面，为空时使用 URL
	Selector       string   `ini:"selector"`
	Pattern        string   `ini:"pattern"`
	TimeoutSeconds int      `ini:"timeout_seconds"`
}

// StorageConf 描述排序结果的持久化位置
type StorageConf struct {
	Output string `ini:"output"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// WebConf 包含 HTTP API 的配置，Port 为 0 表示不启用
type WebConf struct {
	Port     int    `ini:"port"`
	User     string `ini:"user"`
	Password string `ini:"password"`
}

// Config 是统一配置结构体，所有字段只在构造时读取，运行时不可修改。
type Config struct {
	CommonConf  `ini:"common"`
	CacheConf   `ini:"cache"`
	SourceConf  `ini:"source"`
	StorageConf `ini:"storage"`
	LogConf     `ini:"log"`
	WebConf     `ini:"web"`
}

// NewDefaultConfig 返回填充了默认值的配置。
func NewDefaultConfig() *Config {
	return &Config{
		CommonConf: CommonConf{
			Targets:             append([]string(nil), DefaultTargets...),
			ProbeTimeoutSeconds: DefaultProbeTimeoutSecs,
			ProxyConcurrency:    DefaultProxyConcurrency,
			GlobalConcurrency:   DefaultGlobalConcurrency,
		},
		CacheConf: CacheConf{TTLSeconds: DefaultCacheTTLSeconds},
		SourceConf: SourceConf{
			Type:           SourceTypeRaw,
			URL:            DefaultSourceURL,
			Selector:       DefaultHTMLTableSelector,
			Pattern:        DefaultProxyLinePattern,
			TimeoutSeconds: DefaultSourceTimeoutSecs,
		},
		StorageConf: StorageConf{Output: DefaultOutputPath},
		LogConf:     LogConf{Level: "info"},
	}
}
