package ml

import "testing"

func TestPredictionCache(t *testing.T) {
	cache, err := NewPredictionCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	features := []float64{5.1, 3.5, 1.4, 0.2}
	if _, _, ok := cache.Get(features); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Add(features, 0, 0.97)
	class, confidence, ok := cache.Get(features)
	if !ok {
		t.Fatal("expected hit after add")
	}
	if class != 0 || confidence != 0.97 {
		t.Fatalf("unexpected cached values: %d %.2f", class, confidence)
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}

func TestPredictionCachePurge(t *testing.T) {
	cache, err := NewPredictionCache(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache.Add([]float64{5.1, 3.5, 1.4, 0.2}, 0, 1)
	cache.Add([]float64{6.5, 3.0, 5.5, 2.0}, 2, 0.9)
	cache.Purge()

	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d entries", cache.Len())
	}
	if _, _, ok := cache.Get([]float64{5.1, 3.5, 1.4, 0.2}); ok {
		t.Error("expected miss after purge")
	}
}

func TestPredictionCacheEviction(t *testing.T) {
	cache, err := NewPredictionCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache.Add([]float64{1, 1, 1, 1}, 0, 1)
	cache.Add([]float64{2, 2, 2, 2}, 1, 1)
	cache.Add([]float64{3, 3, 3, 3}, 2, 1)

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", cache.Len())
	}
	if _, _, ok := cache.Get([]float64{1, 1, 1, 1}); ok {
		t.Error("expected oldest entry to be evicted")
	}
}
