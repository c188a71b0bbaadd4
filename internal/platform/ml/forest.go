package ml

import (
	"fmt"
)

// Node is one entry of a flattened decision tree. A node whose Left child is
// negative is a leaf; otherwise samples with x[Feature] <= Threshold go left.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) leaf(x []float64) ([]float64, error) {
	idx := 0
	// A well-formed tree reaches a leaf in fewer steps than it has nodes.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return n.Value, nil
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nil, fmt.Errorf("%w: tree does not terminate", ErrInvalidArtifact)
}

func (t Tree) validate(width, valueLen int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrInvalidArtifact)
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			if len(n.Value) != valueLen {
				return fmt.Errorf("%w: leaf %d has %d values, want %d", ErrInvalidArtifact, i, len(n.Value), valueLen)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrInvalidArtifact, i, n.Feature, width)
		}
		if n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
			return fmt.Errorf("%w: node %d has child out of range", ErrInvalidArtifact, i)
		}
	}
	return nil
}

// Forest is an ensemble of trees sharing one feature schema.
type Forest struct {
	Schema FeatureSchema `json:"schema"`
	Trees  []Tree        `json:"trees"`
}

func (f *Forest) validate(valueLen int) error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidArtifact)
	}
	width := f.Schema.Width()
	for i, t := range f.Trees {
		if err := t.validate(width, valueLen); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *Forest) encodeAll(rows []Row) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		x, err := f.Schema.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// ForestClassifier averages per-tree class distributions.
type ForestClassifier struct {
	Forest
	Labels []int `json:"classes"`
}

// Classes implements Classifier.
func (c *ForestClassifier) Classes() []int { return c.Labels }

// PredictProba implements Classifier. Each leaf holds class counts or
// fractions; they are normalized per tree before averaging.
func (c *ForestClassifier) PredictProba(rows []Row) ([][]float64, error) {
	xs, err := c.encodeAll(rows)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(xs))
	for i, x := range xs {
		probs := make([]float64, len(c.Labels))
		for _, t := range c.Trees {
			v, err := t.leaf(x)
			if err != nil {
				return nil, err
			}
			var sum float64
			for _, p := range v {
				sum += p
			}
			if sum == 0 {
				continue
			}
			for k, p := range v {
				probs[k] += p / sum
			}
		}
		for k := range probs {
			probs[k] /= float64(len(c.Trees))
		}
		out[i] = probs
	}
	return out, nil
}

func (c *ForestClassifier) validate() error {
	if len(c.Labels) == 0 {
		return fmt.Errorf("%w: classifier has no classes", ErrInvalidArtifact)
	}
	return c.Forest.validate(len(c.Labels))
}

// ForestRegressor averages per-tree leaf values.
type ForestRegressor struct {
	Forest
}

// Predict implements Regressor.
func (r *ForestRegressor) Predict(rows []Row) ([]float64, error) {
	xs, err := r.encodeAll(rows)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		var sum float64
		for _, t := range r.Trees {
			v, err := t.leaf(x)
			if err != nil {
				return nil, err
			}
			sum += v[0]
		}
		out[i] = sum / float64(len(r.Trees))
	}
	return out, nil
}

func (r *ForestRegressor) validate() error {
	return r.Forest.validate(1)
}
