package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

type artifact struct {
	Metadata
	Nodes []TreeNode `json:"nodes"`
}

// LoadModel reads a serialized classifier artifact from disk.
func LoadModel(path string) (*Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(art.Labels) == 0 {
		return nil, errors.New("model artifact has no class labels")
	}

	switch art.ModelType {
	case "decision_tree":
		tree, err := NewDecisionTreeFromNodes(art.Nodes)
		if err != nil {
			return nil, fmt.Errorf("load decision tree: %w", err)
		}
		return &Model{
			Classifier: tree,
			Meta:       art.Metadata,
			Path:       path,
			LoadedAt:   time.Now(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", art.ModelType)
	}
}

// SaveModel writes a trained decision tree with its metadata envelope.
func SaveModel(path string, tree *DecisionTree, meta Metadata) error {
	if len(tree.Nodes()) == 0 {
		return errors.New("model not trained")
	}
	if meta.ModelType == "" {
		meta.ModelType = "decision_tree"
	}
	if len(meta.Labels) == 0 {
		return errors.New("class labels required")
	}

	payload, err := json.MarshalIndent(artifact{Metadata: meta, Nodes: tree.Nodes()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
