// Package http 提供预测API处理器
package http

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"irisserve/db"
	"irisserve/ml"
	"irisserve/monitoring"

	"go.uber.org/zap"
)

// ServiceVersion 服务版本，code_signature由它生成
const ServiceVersion = "IrisAPI_v1.0.0"

const (
	defaultWorkloadSeconds = 1
	// 模拟负载时长默认上限，防止恶意长请求占用连接
	defaultWorkloadCapSeconds = 30
)

var (
	classifier      atomic.Pointer[ml.Model]
	predictionCache *ml.PredictionCache
	predictionHub   *monitoring.PredictionHub
	metrics         *monitoring.MetricsCollector

	codeSignature = fmt.Sprintf("%x", md5.Sum([]byte(ServiceVersion)))

	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))

	workloadCapSeconds = defaultWorkloadCapSeconds
)

// SetClassifier 设置当前分类器（热更新时整体替换）。
// 缓存键不包含模型身份，换模型必须同时清空缓存
func SetClassifier(model *ml.Model) {
	classifier.Store(model)
	if predictionCache != nil {
		predictionCache.Purge()
	}
}

// SetPredictionCache 设置预测缓存
func SetPredictionCache(cache *ml.PredictionCache) {
	predictionCache = cache
}

// SetPredictionHub 设置事件广播中心
func SetPredictionHub(hub *monitoring.PredictionHub) {
	predictionHub = hub
}

// SetMetricsCollector 设置指标收集器
func SetMetricsCollector(collector *monitoring.MetricsCollector) {
	metrics = collector
}

// SetWorkloadCap 设置模拟负载时长上限（秒）
func SetWorkloadCap(seconds int) {
	if seconds > 0 {
		workloadCapSeconds = seconds
	}
}

func metricsCollector() *monitoring.MetricsCollector {
	return metrics
}

// RegisterHandlers 注册预测相关路由
func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("POST /predict_batch", handlePredictBatch)
	mux.HandleFunc("GET /predict_random", handlePredictRandom)
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /model_info", handleModelInfo)
	mux.HandleFunc("GET /simulate_workload", handleSimulateWorkload)
	mux.HandleFunc("POST /simulate_workload", handleSimulateWorkload)
}

// predictRequest 使用指针字段以区分缺失与零值
type predictRequest struct {
	SepalLength *float64 `json:"sepal_length"`
	SepalWidth  *float64 `json:"sepal_width"`
	PetalLength *float64 `json:"petal_length"`
	PetalWidth  *float64 `json:"petal_width"`
}

func (p predictRequest) toFeatures() (ml.Features, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"sepal_length", p.SepalLength},
		{"sepal_width", p.SepalWidth},
		{"petal_length", p.PetalLength},
		{"petal_width", p.PetalWidth},
	}
	for _, f := range fields {
		if f.value == nil {
			return ml.Features{}, fmt.Errorf("%s is required", f.name)
		}
	}

	features := ml.Features{
		SepalLength: *p.SepalLength,
		SepalWidth:  *p.SepalWidth,
		PetalLength: *p.PetalLength,
		PetalWidth:  *p.PetalWidth,
	}
	return features, features.Validate()
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	features, err := req.toFeatures()
	if err != nil {
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	label, confidence, err := classify(features)
	if err != nil {
		respondClassifyError(w, err)
		return
	}

	recordPrediction(features, label, confidence, "api", time.Since(start))

	respondJSON(w, map[string]interface{}{
		"prediction":     label,
		"confidence":     confidence,
		"code_signature": codeSignature,
	})
}

func handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req struct {
		Features []predictRequest `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Features) == 0 {
		errorJSON(w, http.StatusBadRequest, "features list is empty")
		return
	}

	// 先整体校验再推理：任一元素非法则整批拒绝
	batch := make([]ml.Features, len(req.Features))
	for i, item := range req.Features {
		features, err := item.toFeatures()
		if err != nil {
			errorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid element at index %d: %v", i, err))
			return
		}
		batch[i] = features
	}

	labels := make([]string, len(batch))
	confidences := make([]float64, len(batch))
	for i, features := range batch {
		label, confidence, err := classify(features)
		if err != nil {
			respondClassifyError(w, err)
			return
		}
		labels[i] = label
		confidences[i] = confidence
		notifyPrediction(features, label, confidence, "batch")
	}

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	records := make([]db.PredictionRecord, len(batch))
	for i, features := range batch {
		records[i] = predictionRecord(features, labels[i], confidences[i], "batch", latencyMs)
	}
	if err := db.SavePredictions(records); err != nil {
		zap.S().Warnf("Failed to persist batch predictions: %v", err)
	}

	respondJSON(w, map[string]interface{}{
		"predictions":    labels,
		"code_signature": codeSignature,
	})
}

func handlePredictRandom(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rngMu.Lock()
	features := ml.RandomFeatures(rng)
	rngMu.Unlock()

	label, confidence, err := classify(features)
	if err != nil {
		respondClassifyError(w, err)
		return
	}

	recordPrediction(features, label, confidence, "random", time.Since(start))

	respondJSON(w, map[string]interface{}{
		"random_features": features,
		"prediction":      label,
		"confidence":      confidence,
		"code_signature":  codeSignature,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status":         "healthy",
		"code_signature": codeSignature,
	})
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	model := classifier.Load()
	if model == nil {
		errorJSON(w, http.StatusServiceUnavailable, "classifier not initialized")
		return
	}

	respondJSON(w, map[string]interface{}{
		"model_type":     model.Meta.ModelType,
		"version":        model.Meta.Version,
		"description":    model.Meta.Description,
		"labels":         model.Meta.Labels,
		"artifact":       model.Path,
		"loaded_at":      model.LoadedAt,
		"code_signature": codeSignature,
	})
}

func handleSimulateWorkload(w http.ResponseWriter, r *http.Request) {
	seconds := defaultWorkloadSeconds
	if s := r.URL.Query().Get("seconds"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "seconds must be an integer")
			return
		}
		seconds = v
	}
	if seconds < 0 || seconds > workloadCapSeconds {
		errorJSON(w, http.StatusBadRequest, fmt.Sprintf("seconds must be between 0 and %d", workloadCapSeconds))
		return
	}

	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-r.Context().Done():
		// 客户端已断开或请求超时，无需响应
		return
	}

	respondJSON(w, map[string]string{
		"message":        fmt.Sprintf("simulated workload for %d seconds", seconds),
		"code_signature": codeSignature,
	})
}

var errClassifierUnavailable = errors.New("classifier not initialized")

// classify 执行一次预测：缓存命中则跳过推理
func classify(features ml.Features) (string, float64, error) {
	model := classifier.Load()
	if model == nil {
		return "", 0, errClassifierUnavailable
	}

	vector := features.Vector()
	if predictionCache != nil {
		if class, confidence, ok := predictionCache.Get(vector); ok {
			label, err := model.Label(class)
			if err == nil {
				return label, confidence, nil
			}
		}
	}

	class, confidence, err := model.Predict(vector)
	if err != nil {
		return "", 0, fmt.Errorf("prediction failed: %w", err)
	}
	label, err := model.Label(class)
	if err != nil {
		return "", 0, fmt.Errorf("prediction failed: %w", err)
	}

	if predictionCache != nil {
		predictionCache.Add(vector, class, confidence)
	}
	return label, confidence, nil
}

func respondClassifyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errClassifierUnavailable) {
		errorJSON(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	zap.S().Errorf("Prediction error: %v", err)
	errorJSON(w, http.StatusInternalServerError, err.Error())
}

// recordPrediction 记录单次预测：入库、广播、计数。失败不影响响应
func recordPrediction(features ml.Features, label string, confidence float64, source string, latency time.Duration) {
	latencyMs := float64(latency.Microseconds()) / 1000
	if err := db.SavePrediction(predictionRecord(features, label, confidence, source, latencyMs)); err != nil {
		zap.S().Warnf("Failed to persist prediction: %v", err)
	}
	notifyPrediction(features, label, confidence, source)
}

func predictionRecord(features ml.Features, label string, confidence float64, source string, latencyMs float64) db.PredictionRecord {
	return db.PredictionRecord{
		SepalLength: features.SepalLength,
		SepalWidth:  features.SepalWidth,
		PetalLength: features.PetalLength,
		PetalWidth:  features.PetalWidth,
		Label:       label,
		Confidence:  confidence,
		Source:      source,
		LatencyMs:   latencyMs,
	}
}

func notifyPrediction(features ml.Features, label string, confidence float64, source string) {
	if metrics != nil {
		metrics.RecordPrediction(label)
	}
	if predictionHub != nil {
		predictionHub.BroadcastPrediction(label, confidence, features.Vector(), source)
	}
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Errorf("Failed to encode JSON: %v", err)
	}
}

// errorJSON 统一JSON错误响应
func errorJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
