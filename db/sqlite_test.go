package db

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	// Setup
	dbPath := "./test.db"
	InitDB(dbPath)

	code := m.Run()

	// Teardown
	Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func TestSaveAndQueryPredictions(t *testing.T) {
	records := []PredictionRecord{
		{SepalLength: 5.1, SepalWidth: 3.5, PetalLength: 1.4, PetalWidth: 0.2,
			Label: "setosa", Confidence: 1, Source: "api", LatencyMs: 0.4},
		{SepalLength: 5.7, SepalWidth: 2.8, PetalLength: 4.1, PetalWidth: 1.3,
			Label: "versicolor", Confidence: 0.98, Source: "batch", LatencyMs: 0.2},
		{SepalLength: 6.5, SepalWidth: 3.0, PetalLength: 5.5, PetalWidth: 2.0,
			Label: "virginica", Confidence: 0.97, Source: "random", LatencyMs: 0.3},
	}
	if err := SavePredictions(records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := QueryRecentPredictions(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	// Newest first
	if got[0].Label != "virginica" || got[1].Label != "versicolor" {
		t.Errorf("unexpected order: %s, %s", got[0].Label, got[1].Label)
	}
	if got[0].PetalWidth != 2.0 {
		t.Errorf("unexpected petal_width: %v", got[0].PetalWidth)
	}
}

func TestLabelCounts(t *testing.T) {
	if err := SavePrediction(PredictionRecord{
		SepalLength: 5.0, SepalWidth: 3.4, PetalLength: 1.5, PetalWidth: 0.2,
		Label: "setosa", Confidence: 1, Source: "api", LatencyMs: 0.1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts, err := LabelCounts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts["setosa"] < 1 {
		t.Errorf("expected at least one setosa prediction, got %v", counts)
	}
}
