package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"txdecoder/internal/chains"
	"txdecoder/internal/config"
	"txdecoder/internal/metrics"
	"txdecoder/pkg/models"
)

// Output 解码结果输出接口
type Output interface {
	WriteTransaction(tx *models.DecodedTransaction) error
	Close() error
}

// NewOutput 按配置创建输出器
func NewOutput(cfg *config.OutputConfig, registry *chains.Registry, logger *logrus.Logger) (Output, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig().Output
	}

	if cfg.Format == "kafka" {
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("缺少Kafka配置")
		}
		return NewKafkaOutput(cfg.Kafka, logger)
	}

	w, closer, err := openWriter(cfg.Path)
	if err != nil {
		return nil, err
	}

	switch cfg.Format {
	case "json":
		out := NewJSONOutput(w)
		out.closer = closer
		return out, nil
	case "text", "":
		out := NewTextOutput(w, registry)
		out.closer = closer
		return out, nil
	default:
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("不支持的输出格式: %s", cfg.Format)
	}
}

// openWriter 空路径写标准输出，否则追加写入文件
func openWriter(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stdout, nil, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	return file, file, nil
}

// JSONOutput 每条结果一行 JSON
type JSONOutput struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewJSONOutput 创建 JSON 行输出器
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{w: w}
}

// WriteTransaction 写入解码结果
func (o *JSONOutput) WriteTransaction(tx *models.DecodedTransaction) error {
	if tx == nil {
		return nil
	}

	data, err := json.Marshal(tx)
	if err != nil {
		metrics.PublishedResults.WithLabelValues("json", "error").Inc()
		return fmt.Errorf("序列化解码结果失败: %w", err)
	}

	// 添加换行符
	data = append(data, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(data); err != nil {
		metrics.PublishedResults.WithLabelValues("json", "error").Inc()
		return fmt.Errorf("写入解码结果失败: %w", err)
	}

	metrics.PublishedResults.WithLabelValues("json", "success").Inc()
	return nil
}

// Close 关闭底层文件
func (o *JSONOutput) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}
