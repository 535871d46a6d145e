package ml

import "testing"

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 2, 2}

	model := NewDecisionTree(2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, confidence, err := model.Predict([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
	if confidence <= 0 {
		t.Fatalf("expected confidence > 0")
	}
}

func TestDecisionTreePredictUntrained(t *testing.T) {
	model := NewDecisionTree(3)
	if _, _, err := model.Predict([]float64{1, 2}); err == nil {
		t.Fatal("expected error for untrained model")
	}
}

func TestDecisionTreeTrainMismatch(t *testing.T) {
	model := NewDecisionTree(3)
	err := model.Train([][]float64{{1, 2}}, []int{0, 1})
	if err == nil {
		t.Fatal("expected error for mismatched sizes")
	}
}

func TestNewDecisionTreeFromNodesValidation(t *testing.T) {
	nodes := []TreeNode{
		{FeatureIdx: 0, Threshold: 1, LeftChild: 1, RightChild: 5, IsLeaf: false},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
	}
	if _, err := NewDecisionTreeFromNodes(nodes); err == nil {
		t.Fatal("expected error for out-of-range child index")
	}

	if _, err := NewDecisionTreeFromNodes(nil); err == nil {
		t.Fatal("expected error for empty tree")
	}
}

func TestDecisionTreeDeepTreeIndices(t *testing.T) {
	// 三类样本强制产生深度大于1的树，验证展平后的子索引有效
	features := [][]float64{
		{1.0}, {1.1}, {1.2},
		{5.0}, {5.1}, {5.2},
		{9.0}, {9.1}, {9.2},
	}
	labels := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}

	model := NewDecisionTree(4)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewDecisionTreeFromNodes(model.Nodes()); err != nil {
		t.Fatalf("trained tree has invalid layout: %v", err)
	}

	cases := map[float64]int{1.05: 0, 5.05: 1, 9.05: 2}
	for value, want := range cases {
		label, _, err := model.Predict([]float64{value})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != want {
			t.Errorf("value %.2f: expected label %d, got %d", value, want, label)
		}
	}
}
