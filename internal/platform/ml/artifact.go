package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact kinds written by the export step of the training pipeline.
const (
	KindForestClassifier = "random_forest_classifier"
	KindForestRegressor  = "random_forest_regressor"
	KindSARIMA           = "sarima"
)

type envelope struct {
	Kind  string          `json:"kind"`
	Model json.RawMessage `json:"model"`
}

func readEnvelope(path, want string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	if env.Kind != want {
		return nil, fmt.Errorf("%w: %s has kind %q, want %q", ErrInvalidArtifact, path, env.Kind, want)
	}
	return env.Model, nil
}

// LoadClassifier reads a random forest classifier artifact.
func LoadClassifier(path string) (*ForestClassifier, error) {
	raw, err := readEnvelope(path, KindForestClassifier)
	if err != nil {
		return nil, err
	}
	var c ForestClassifier
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// LoadRegressor reads a random forest regressor artifact.
func LoadRegressor(path string) (*ForestRegressor, error) {
	raw, err := readEnvelope(path, KindForestRegressor)
	if err != nil {
		return nil, err
	}
	var r ForestRegressor
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &r, nil
}

// LoadForecaster reads a seasonal ARIMA artifact.
func LoadForecaster(path string) (*SARIMA, error) {
	raw, err := readEnvelope(path, KindSARIMA)
	if err != nil {
		return nil, err
	}
	var m SARIMA
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	if err := m.prepare(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}
