// Package http 提供监控API处理器
package http

import (
	"net/http"
	"strconv"

	"irisserve/db"
)

// RegisterMonitorHandlers 注册监控相关路由
func RegisterMonitorHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/predictions/recent", handleRecentPredictions)
	mux.HandleFunc("GET /api/stats", handleStats)
	mux.HandleFunc("GET /api/metrics", handleMetrics)
	mux.HandleFunc("GET /api/ws/predictions", handlePredictionStream)
}

func handleRecentPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			errorJSON(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	if limit > 500 {
		limit = 500
	}

	records, err := db.QueryRecentPredictions(limit)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}

	respondJSON(w, map[string]interface{}{
		"predictions": records,
		"count":       len(records),
	})
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := db.LabelCounts()
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	stats := map[string]interface{}{
		"label_counts": counts,
	}
	if predictionCache != nil {
		hits, misses := predictionCache.Stats()
		stats["cache"] = map[string]interface{}{
			"hits":    hits,
			"misses":  misses,
			"entries": predictionCache.Len(),
		}
	}
	if predictionHub != nil {
		stats["ws_clients"] = predictionHub.ClientCount()
	}

	respondJSON(w, stats)
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if metrics == nil {
		errorJSON(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}
	respondJSON(w, metrics.GetSnapshot())
}

func handlePredictionStream(w http.ResponseWriter, r *http.Request) {
	if predictionHub == nil {
		errorJSON(w, http.StatusServiceUnavailable, "prediction stream not initialized")
		return
	}
	predictionHub.HandleWebSocket(w, r)
}
