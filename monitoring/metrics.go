// Package monitoring 提供服务指标与实时事件推送
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// MetricsCollector 指标收集器：按端点统计请求量与延迟
type MetricsCollector struct {
	mu sync.RWMutex

	requests  map[string]int64
	labels    map[string]int64
	latencies []float64 // 最近请求延迟（毫秒）
	startTime time.Time
}

// Snapshot 指标快照
type Snapshot struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Requests      map[string]int64 `json:"requests"`
	Predictions   map[string]int64 `json:"predictions"`
	LatencyAvgMs  float64          `json:"latency_avg_ms"`
	LatencyMaxMs  float64          `json:"latency_max_ms"`
	SampleCount   int              `json:"sample_count"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewMetricsCollector 创建指标收集器
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requests:  make(map[string]int64),
		labels:    make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordRequest 记录一次HTTP请求
func (mc *MetricsCollector) RecordRequest(path string, status int, latency time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := fmt.Sprintf("%s|%d", path, status)
	mc.requests[key]++

	mc.latencies = append(mc.latencies, float64(latency.Microseconds())/1000)
	// 限制历史大小（保留最近1000个）
	if len(mc.latencies) > 1000 {
		mc.latencies = mc.latencies[100:]
	}
}

// RecordPrediction 记录一次预测结果
func (mc *MetricsCollector) RecordPrediction(label string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.labels[label]++
}

// GetSnapshot 获取指标快照
func (mc *MetricsCollector) GetSnapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	requests := make(map[string]int64, len(mc.requests))
	for k, v := range mc.requests {
		requests[k] = v
	}
	labels := make(map[string]int64, len(mc.labels))
	for k, v := range mc.labels {
		labels[k] = v
	}

	var sum, max float64
	for _, l := range mc.latencies {
		sum += l
		if l > max {
			max = l
		}
	}
	avg := 0.0
	if len(mc.latencies) > 0 {
		avg = sum / float64(len(mc.latencies))
	}

	return Snapshot{
		UptimeSeconds: time.Since(mc.startTime).Seconds(),
		Requests:      requests,
		Predictions:   labels,
		LatencyAvgMs:  avg,
		LatencyMaxMs:  max,
		SampleCount:   len(mc.latencies),
		Timestamp:     time.Now(),
	}
}
