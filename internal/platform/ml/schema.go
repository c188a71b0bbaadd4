package ml

import (
	"fmt"
	"strconv"
)

// CategoricalFeature is a one-hot encoded column and its known categories.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// FeatureSchema describes how a Row becomes the model's feature vector:
// numeric columns pass through in order, followed by one indicator per
// category of each categorical column. Categories not seen during training
// encode as all zeros.
type FeatureSchema struct {
	Numeric         []string             `json:"numeric"`
	NumericDefaults map[string]float64   `json:"numeric_defaults,omitempty"`
	Categorical     []CategoricalFeature `json:"categorical"`
}

// Width is the length of an encoded feature vector.
func (s FeatureSchema) Width() int {
	n := len(s.Numeric)
	for _, c := range s.Categorical {
		n += len(c.Categories)
	}
	return n
}

// Encode converts a row into a feature vector. A numeric column absent from
// the row takes its declared default; without one the row is rejected.
func (s FeatureSchema) Encode(row Row) ([]float64, error) {
	out := make([]float64, 0, s.Width())
	for _, name := range s.Numeric {
		raw, ok := row[name]
		if !ok {
			def, hasDefault := s.NumericDefaults[name]
			if !hasDefault {
				return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
			}
			out = append(out, def)
			continue
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		out = append(out, v)
	}
	for _, cat := range s.Categorical {
		raw, ok := row[cat.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, cat.Name)
		}
		str := fmt.Sprint(raw)
		for _, c := range cat.Categories {
			if c == str {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported numeric value %v (%T)", v, v)
	}
}
