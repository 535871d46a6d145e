package ml

import (
	"fmt"
	"math/rand"
)

// Upper bounds match the measurement ranges the model was trained on.
const (
	SepalLengthMax = 8.0
	SepalWidthMax  = 4.5
	PetalLengthMax = 7.0
	PetalWidthMax  = 2.5
)

type Features struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// Vector returns the measurements in the fixed order the classifier expects.
func (f Features) Vector() []float64 {
	return []float64{f.SepalLength, f.SepalWidth, f.PetalLength, f.PetalWidth}
}

func (f Features) Validate() error {
	checks := []struct {
		name  string
		value float64
		max   float64
	}{
		{"sepal_length", f.SepalLength, SepalLengthMax},
		{"sepal_width", f.SepalWidth, SepalWidthMax},
		{"petal_length", f.PetalLength, PetalLengthMax},
		{"petal_width", f.PetalWidth, PetalWidthMax},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%s must be greater than zero", c.name)
		}
		if c.value > c.max {
			return fmt.Errorf("%s must be at most %.1f", c.name, c.max)
		}
	}
	return nil
}

// RandomFeatures samples a vector uniformly within typical iris ranges.
func RandomFeatures(rnd *rand.Rand) Features {
	return Features{
		SepalLength: 4.0 + rnd.Float64()*(SepalLengthMax-4.0),
		SepalWidth:  2.0 + rnd.Float64()*(SepalWidthMax-2.0),
		PetalLength: 1.0 + rnd.Float64()*(PetalLengthMax-1.0),
		PetalWidth:  0.1 + rnd.Float64()*(PetalWidthMax-0.1),
	}
}
