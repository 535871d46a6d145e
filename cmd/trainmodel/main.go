package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"irisserve/ml"
)

func main() {
	dataPath := flag.String("data", "", "labeled CSV: sepal_length,sepal_width,petal_length,petal_width,species")
	modelPath := flag.String("model_path", "./models/iris_tree.json", "model output path")
	maxDepth := flag.Int("max_depth", 4, "max tree depth")
	testRatio := flag.Float64("test_ratio", 0.2, "test ratio")
	version := flag.String("version", "1.0.0", "artifact version")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}

	features, labels, labelNames, err := loadDataset(*dataPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	trainX, trainY, testX, testY := splitDataset(features, labels, *testRatio)

	model := ml.NewDecisionTree(*maxDepth)
	if err := model.Train(trainX, trainY); err != nil {
		log.Fatalf("failed to train model: %v", err)
	}

	accuracy := evaluateModel(model, testX, testY)
	log.Printf("samples=%d train=%d test=%d accuracy=%.2f", len(features), len(trainX), len(testX), accuracy)

	if err := os.MkdirAll(filepath.Dir(*modelPath), 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	meta := ml.Metadata{
		ModelType:   "decision_tree",
		Version:     *version,
		Description: "Decision tree trained on the Iris dataset to classify iris flower species.",
		Labels:      labelNames,
	}
	if err := ml.SaveModel(*modelPath, model, meta); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	fmt.Printf("model saved to %s\n", *modelPath)
}

// loadDataset reads feature rows and maps label names to class indices in
// first-seen order. A header row is skipped if the first column is not numeric.
func loadDataset(path string) ([][]float64, []int, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	features := make([][]float64, 0, len(rows))
	labels := make([]int, 0, len(rows))
	labelNames := make([]string, 0, 3)
	labelIndex := make(map[string]int)

	for i, row := range rows {
		if len(row) != 5 {
			return nil, nil, nil, fmt.Errorf("row %d: expected 5 columns, got %d", i+1, len(row))
		}
		if _, err := strconv.ParseFloat(row[0], 64); err != nil {
			if i == 0 {
				continue // header
			}
			return nil, nil, nil, fmt.Errorf("row %d: invalid value %q", i+1, row[0])
		}

		vector := make([]float64, 4)
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("row %d: invalid value %q", i+1, row[j])
			}
			vector[j] = v
		}

		name := row[4]
		class, ok := labelIndex[name]
		if !ok {
			class = len(labelNames)
			labelIndex[name] = class
			labelNames = append(labelNames, name)
		}

		features = append(features, vector)
		labels = append(labels, class)
	}

	if len(features) == 0 {
		return nil, nil, nil, fmt.Errorf("no samples in %s", path)
	}
	return features, labels, labelNames, nil
}

func splitDataset(features [][]float64, labels []int, testRatio float64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	indices := rnd.Perm(len(features))

	split := int(float64(len(features)) * (1 - testRatio))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func evaluateModel(model *ml.DecisionTree, testX [][]float64, testY []int) float64 {
	if len(testX) == 0 {
		return 0
	}

	var correct int
	for i, feature := range testX {
		label, _, err := model.Predict(feature)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testX))
}
