package artifacts

import (
	"fmt"
	"math"
)

// Classifier is a serialized logistic model predicting the probability that
// a session abandons checkout. Weights are exported by the offline training
// pipeline against the fixed feature vector schema.
type Classifier struct {
	header
	FeatureWidth int       `json:"feature_width"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`

	// Standardization parameters applied before the linear term. Optional;
	// empty slices mean the model was trained on raw features.
	Means  []float64 `json:"means,omitempty"`
	Scales []float64 `json:"scales,omitempty"`
}

func loadClassifier(path string) (*Classifier, error) {
	var c Classifier
	if err := readArtifact(path, "classifier", &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &c, nil
}

func (c *Classifier) validate() error {
	if c.FeatureWidth <= 0 {
		return fmt.Errorf("non-positive feature width %d", c.FeatureWidth)
	}
	if len(c.Weights) != c.FeatureWidth {
		return fmt.Errorf("weight count %d does not match feature width %d", len(c.Weights), c.FeatureWidth)
	}
	// Standardization parameters come as a pair: both absent or both full.
	if len(c.Means) != len(c.Scales) {
		return fmt.Errorf("means length %d does not match scales length %d", len(c.Means), len(c.Scales))
	}
	if len(c.Means) != 0 && len(c.Means) != c.FeatureWidth {
		return fmt.Errorf("means length %d does not match feature width %d", len(c.Means), c.FeatureWidth)
	}
	return nil
}

// PredictProba returns the probability of the positive (abandon) class for
// the given feature vector. Returns an error if the vector width does not
// match the trained shape; callers are expected to absorb that error and
// fall through to their fallback tier.
func (c *Classifier) PredictProba(vector []float64) (float64, error) {
	if len(vector) != c.FeatureWidth {
		return 0, fmt.Errorf("vector width %d, model expects %d", len(vector), c.FeatureWidth)
	}

	z := c.Bias
	for i, x := range vector {
		if i < len(c.Means) && i < len(c.Scales) && c.Scales[i] != 0 {
			x = (x - c.Means[i]) / c.Scales[i]
		}
		z += c.Weights[i] * x
	}

	p := 1.0 / (1.0 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN probability")
	}
	return p, nil
}
