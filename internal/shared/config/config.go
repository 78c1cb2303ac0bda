package config

import (
	"errors"
	"fmt"
	"gopkg.in/ini.v1"
	"os"
	"proxysaringan/internal/shared/types"
	"strconv"
	"strings"
)

// ErrInvalidConfig 是所有配置校验错误的根错误。
var ErrInvalidConfig = errors.New("invalid config")

// Load 返回默认配置叠加 ini 文件和环境变量后的结果。
// 文件不存在时仅使用默认值和环境变量。
func Load(fileName string) (*types.Config, error) {
	cfg := types.NewDefaultConfig()
	if err := LoadIni(cfg, fileName); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		applyEnvOverrides(cfg)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadIni 将 ini 文件映射到 cfg 上，文件中缺失的键保留 cfg 中原有的值。
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err != nil {
		return err
	}
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map %s: %w", fileName, err)
	}
	applyEnvOverrides(cfg)
	return nil
}

// LoadIniBytes 与 LoadIni 相同，但从内存中的 ini 文本读取。
func LoadIniBytes(cfg *types.Config, data []byte) error {
	iniFile, err := ini.Load(data)
	if err != nil {
		return fmt.Errorf("failed to parse ini data: %w", err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map ini data: %w", err)
	}
	applyEnvOverrides(cfg)
	return nil
}

// Validate 检查构造期参数是否可用。
func Validate(cfg *types.Config) error {
	var problems []string
	if cfg.ProbeTimeoutSeconds <= 0 {
		problems = append(problems, "probe_timeout_seconds must be positive")
	}
	if cfg.ProxyConcurrency <= 0 {
		problems = append(problems, "proxy_concurrency must be positive")
	}
	if cfg.GlobalConcurrency <= 0 {
		problems = append(problems, "global_concurrency must be positive")
	}
	if cfg.TTLSeconds <= 0 {
		problems = append(problems, "ttl_seconds must be positive")
	}
	if cfg.SourceConf.TimeoutSeconds <= 0 {
		problems = append(problems, "source timeout_seconds must be positive")
	}
	switch cfg.SourceConf.Type {
	case types.SourceTypeRaw, types.SourceTypeHTML, types.SourceTypePattern:
	default:
		problems = append(problems, fmt.Sprintf("unknown source type %q", cfg.SourceConf.Type))
	}
	if cfg.SourceConf.URL == "" && len(cfg.SourceConf.Pages) == 0 {
		problems = append(problems, "source url is empty")
	}
	if cfg.StorageConf.Output == "" {
		problems = append(problems, "storage output is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func applyEnvOverrides(cfg *types.Config) {
	overrideFromEnvString(&cfg.SourceConf.URL, "PROXY_SOURCE_URL")
	overrideFromEnvString(&cfg.StorageConf.Output, "PROXY_OUTPUT")
	overrideFromEnvString(&cfg.LogConf.Level, "LOG_LEVEL")
	overrideFromEnvInt(&cfg.WebConf.Port, "WEB_PORT")
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
