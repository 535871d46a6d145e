package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"irisserve/db"
	"irisserve/ml"
	"irisserve/monitoring"
)

func TestMain(m *testing.M) {
	// Setup
	dbPath := "./test.db"
	db.InitDB(dbPath)

	code := m.Run()

	// Teardown
	db.Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func TestHealthHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	payload := decodeBody(t, rr)
	if payload["status"] != "healthy" {
		t.Errorf("unexpected status: %v", payload["status"])
	}
	sig, _ := payload["code_signature"].(string)
	if len(sig) != 32 {
		t.Errorf("expected md5 code_signature, got %q", sig)
	}
}

func TestModelInfoHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)

	SetClassifier(&ml.Model{
		Classifier: &fakeClassifier{class: 0, confidence: 1},
		Meta: ml.Metadata{
			ModelType:   "decision_tree",
			Version:     "9.9.9",
			Description: "test model",
			Labels:      []string{"setosa", "versicolor", "virginica"},
		},
		Path: "./models/test.json",
	})
	defer SetClassifier(nil)

	req := httptest.NewRequest(http.MethodGet, "/model_info", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	payload := decodeBody(t, rr)
	if payload["model_type"] != "decision_tree" {
		t.Errorf("unexpected model_type: %v", payload["model_type"])
	}
	if payload["version"] != "9.9.9" {
		t.Errorf("unexpected version: %v", payload["version"])
	}
	labels, _ := payload["labels"].([]interface{})
	if len(labels) != 3 {
		t.Errorf("expected 3 labels, got %v", payload["labels"])
	}
}

func TestModelInfoHandlerNoClassifier(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetClassifier(nil)

	req := httptest.NewRequest(http.MethodGet, "/model_info", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRecentPredictionsHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterMonitorHandlers(mux)

	if err := db.SavePrediction(db.PredictionRecord{
		SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2,
		Label: "setosa", Confidence: 1, Source: "api", LatencyMs: 0.5,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predictions/recent?limit=1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["count"].(float64) != 1 {
		t.Errorf("expected count 1, got %v", payload["count"])
	}
}

func TestRecentPredictionsHandlerBadLimit(t *testing.T) {
	mux := http.NewServeMux()
	RegisterMonitorHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/predictions/recent?limit=zero", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	mux := http.NewServeMux()
	RegisterMonitorHandlers(mux)

	SetMetricsCollector(monitoring.NewMetricsCollector())
	defer SetMetricsCollector(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if _, ok := payload["uptime_seconds"]; !ok {
		t.Errorf("expected uptime_seconds in snapshot: %v", payload)
	}
}
