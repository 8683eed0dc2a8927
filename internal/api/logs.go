package api

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogEntry 日志条目
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`

	severity logrus.Level
}

// LogQuery 日志查询条件，MinLevel 为 nil 时不过滤
type LogQuery struct {
	MinLevel *logrus.Level
	Offset   int
	Limit    int
}

// LogPage 一页日志，Total 为过滤后的总数
type LogPage struct {
	Entries []LogEntry `json:"entries"`
	Total   int        `json:"total"`
}

// LogManager 环形缓冲区，保留最近的若干条日志
type LogManager struct {
	mu    sync.RWMutex
	ring  []LogEntry
	next  int // 下一条写入的位置
	count int
}

// NewLogManager 创建日志管理器，capacity 非正时取 1000
func NewLogManager(capacity int) *LogManager {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LogManager{ring: make([]LogEntry, capacity)}
}

// Record 写入一条日志，缓冲区满时覆盖最旧的
func (lm *LogManager) Record(entry *logrus.Entry) {
	record := LogEntry{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
		severity:  entry.Level,
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			record.Fields[k] = v
		}
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.ring[lm.next] = record
	lm.next = (lm.next + 1) % len(lm.ring)
	if lm.count < len(lm.ring) {
		lm.count++
	}
}

// Query 从最新的开始遍历，返回不低于 MinLevel 严重程度的一页
func (lm *LogManager) Query(q LogQuery) LogPage {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	page := LogPage{Entries: []LogEntry{}}
	for i := 0; i < lm.count; i++ {
		e := lm.ring[(lm.next-1-i+len(lm.ring))%len(lm.ring)]
		if q.MinLevel != nil && e.severity > *q.MinLevel {
			continue
		}
		if page.Total >= q.Offset && (q.Limit <= 0 || len(page.Entries) < q.Limit) {
			page.Entries = append(page.Entries, e)
		}
		page.Total++
	}
	return page
}

// Reset 丢弃全部日志，返回丢弃的条数
func (lm *LogManager) Reset() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	dropped := lm.count
	lm.ring = make([]LogEntry, len(lm.ring))
	lm.next, lm.count = 0, 0
	return dropped
}

// LogHook 把 logrus 日志写入 LogManager
type LogHook struct {
	manager *LogManager
}

// NewLogHook 创建日志钩子
func NewLogHook(manager *LogManager) *LogHook {
	return &LogHook{manager: manager}
}

// Fire 实现 logrus.Hook 接口
func (h *LogHook) Fire(entry *logrus.Entry) error {
	h.manager.Record(entry)
	return nil
}

// Levels 实现 logrus.Hook 接口
func (h *LogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
