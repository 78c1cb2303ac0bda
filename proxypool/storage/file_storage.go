package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"proxysaringan/internal/shared/logger"
	"proxysaringan/proxypool/model"
	"strconv"
	"sync"
)

// speedUnavailable 是没有测得延迟时 speed 字段的取值。
const speedUnavailable = "N/A"

// Storage 接口定义了排序结果持久化的行为。
type Storage interface {
	Save(reports []model.ProxyReport) error
}

// WebsiteRecord 是持久化文件中单个目标站点的探测结果。
type WebsiteRecord struct {
	Website string `json:"website"`
	Success bool   `json:"success"`
	Speed   string `json:"speed"`
	Error   string `json:"error,omitempty"`
}

// ProxyRecord 是持久化文件中的一个代理。
type ProxyRecord struct {
	Proxy     string          `json:"proxy"`
	Websites  []WebsiteRecord `json:"websites"`
	TotalTime float64         `json:"total_time"`
}

// FileStorage 实现了 Storage 接口，将结果写为 JSON 数组。
type FileStorage struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStorage 创建一个新的 FileStorage 实例。
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{
		filePath: filePath,
	}
}

// Path 返回输出文件路径。
func (fs *FileStorage) Path() string {
	return fs.filePath
}

// Save 将排序后的报告写入文件。先写临时文件再重命名，读者不会看到写了一半的文件。
func (fs *FileStorage) Save(reports []model.ProxyReport) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	data, err := Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, fs.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", fs.filePath, err)
	}

	l.Info().Int("count", len(reports)).Str("path", fs.filePath).Msg("Successfully saved proxies to file.")
	return nil
}

// Marshal 将报告序列化为带 4 空格缩进的 JSON 数组。
func Marshal(reports []model.ProxyReport) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(ToRecords(reports)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToRecords 将报告转换为持久化格式，HTTP API 也使用同一格式。
func ToRecords(reports []model.ProxyReport) []ProxyRecord {
	records := make([]ProxyRecord, 0, len(reports))
	for _, r := range reports {
		records = append(records, toRecord(r))
	}
	return records
}

func toRecord(r model.ProxyReport) ProxyRecord {
	websites := make([]WebsiteRecord, 0, len(r.Probes))
	for _, p := range r.Probes {
		websites = append(websites, toWebsiteRecord(p))
	}
	return ProxyRecord{
		Proxy:     string(r.Proxy),
		Websites:  websites,
		TotalTime: r.TotalSeconds(),
	}
}

func toWebsiteRecord(p model.ProbeResult) WebsiteRecord {
	rec := WebsiteRecord{
		Website: p.Target,
		Success: p.Success,
		Speed:   speedUnavailable,
	}
	if p.HasLatency() {
		rec.Speed = FormatSpeed(p.LatencySeconds())
	}
	if !p.Success && p.Fault != nil {
		rec.Error = p.Fault.Error()
	}
	return rec
}

// FormatSpeed 以最短的十进制形式输出秒数，例如 0.1、0.25。
func FormatSpeed(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
