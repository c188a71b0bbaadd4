package ml

import (
	"errors"
	"math"
	"testing"
)

func ageSchema() FeatureSchema {
	return FeatureSchema{
		Numeric: []string{"Age"},
		Categorical: []CategoricalFeature{
			{Name: "Gender", Categories: []string{"Female", "Male"}},
		},
	}
}

// stump splits on Age <= 40; x = [Age, Female, Male].
func stump(leftVal, rightVal []float64) Tree {
	return Tree{Nodes: []Node{
		{Feature: 0, Threshold: 40, Left: 1, Right: 2},
		{Left: -1, Right: -1, Value: leftVal},
		{Left: -1, Right: -1, Value: rightVal},
	}}
}

func TestForestClassifier_PredictProba(t *testing.T) {
	c := &ForestClassifier{
		Forest: Forest{
			Schema: ageSchema(),
			Trees: []Tree{
				stump([]float64{8, 2}, []float64{0, 10}),
				stump([]float64{1, 0}, []float64{0.5, 0.5}),
			},
		},
		Labels: []int{1, 2},
	}
	if err := c.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	probs, err := c.PredictProba([]Row{
		{"Age": 30, "Gender": "Male"},
		{"Age": 70, "Gender": "Female"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(probs[0][0]-0.9) > 1e-9 || math.Abs(probs[0][1]-0.1) > 1e-9 {
		t.Errorf("young patient: got %v, want [0.9 0.1]", probs[0])
	}
	if math.Abs(probs[1][0]-0.25) > 1e-9 || math.Abs(probs[1][1]-0.75) > 1e-9 {
		t.Errorf("older patient: got %v, want [0.25 0.75]", probs[1])
	}
	if Argmax(probs[1]) != 1 {
		t.Errorf("expected class index 1 for older patient")
	}
}

func TestForestClassifier_SplitOnCategory(t *testing.T) {
	tree := Tree{Nodes: []Node{
		{Feature: 2, Threshold: 0.5, Left: 1, Right: 2},
		{Left: -1, Right: -1, Value: []float64{1, 0}},
		{Left: -1, Right: -1, Value: []float64{0, 1}},
	}}
	c := &ForestClassifier{Forest: Forest{Schema: ageSchema(), Trees: []Tree{tree}}, Labels: []int{3, 4}}

	probs, err := c.PredictProba([]Row{
		{"Age": 50, "Gender": "Male"},
		{"Age": 50, "Gender": "Unknown"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probs[0][1] != 1 {
		t.Errorf("male row should take the right branch, got %v", probs[0])
	}
	if probs[1][0] != 1 {
		t.Errorf("unseen category should encode as zeros and go left, got %v", probs[1])
	}
}

func TestForestRegressor_Predict(t *testing.T) {
	r := &ForestRegressor{Forest: Forest{
		Schema: ageSchema(),
		Trees: []Tree{
			stump([]float64{10}, []float64{30}),
			stump([]float64{20}, []float64{50}),
		},
	}}
	if err := r.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out, err := r.Predict([]Row{
		{"Age": 10, "Gender": "Female"},
		{"Age": 41, "Gender": "Female"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 15 || out[1] != 40 {
		t.Errorf("got %v, want [15 40]", out)
	}
}

func TestForestRegressor_MissingFeature(t *testing.T) {
	r := &ForestRegressor{Forest: Forest{Schema: ageSchema(), Trees: []Tree{stump([]float64{1}, []float64{2})}}}
	_, err := r.Predict([]Row{{"Gender": "Male"}})
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("expected ErrMissingFeature, got %v", err)
	}
}

func TestForest_ValidateRejectsBadTrees(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{"empty", Tree{}},
		{"feature out of range", Tree{Nodes: []Node{
			{Feature: 9, Left: 1, Right: 1},
			{Left: -1, Value: []float64{1}},
		}}},
		{"child out of range", Tree{Nodes: []Node{
			{Feature: 0, Left: 1, Right: 5},
			{Left: -1, Value: []float64{1}},
		}}},
		{"wrong leaf width", Tree{Nodes: []Node{
			{Left: -1, Value: []float64{1, 2}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ForestRegressor{Forest: Forest{Schema: ageSchema(), Trees: []Tree{tt.tree}}}
			if err := r.validate(); !errors.Is(err, ErrInvalidArtifact) {
				t.Errorf("expected ErrInvalidArtifact, got %v", err)
			}
		})
	}
}

func TestTree_CycleDetected(t *testing.T) {
	tree := Tree{Nodes: []Node{
		{Feature: 0, Threshold: 100, Left: 0, Right: 0},
	}}
	if _, err := tree.leaf([]float64{1, 0, 0}); !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact for cyclic tree, got %v", err)
	}
}
