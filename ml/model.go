package ml

import (
	"fmt"
	"time"
)

// Classifier maps a feature vector to a class index with a confidence score.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// Metadata is the descriptive envelope stored alongside the model weights.
type Metadata struct {
	ModelType   string   `json:"model_type"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
}

// Model is a loaded classifier plus its artifact metadata. It is read-only
// after load and safe to share across requests.
type Model struct {
	Classifier

	Meta     Metadata
	Path     string
	LoadedAt time.Time
}

// Label translates a class index into its human-readable name.
func (m *Model) Label(class int) (string, error) {
	if class < 0 || class >= len(m.Meta.Labels) {
		return "", fmt.Errorf("class index %d out of range", class)
	}
	return m.Meta.Labels[class], nil
}
