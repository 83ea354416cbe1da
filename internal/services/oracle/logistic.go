package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"StrikeGate/internal/domain/models"
	domsvc "StrikeGate/internal/domain/service"
)

// scoreClamp bounds the logistic score so exp stays well-conditioned.
const scoreClamp = 20.0

// modelArtifact is the on-disk layout of a trained logistic model.
type modelArtifact struct {
	Version      string    `json:"version"`
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// LogisticOracle scores direction with a logistic model loaded from a JSON
// artifact at startup. A load failure is fatal: the caller must not fall back
// to a default model.
type LogisticOracle struct {
	art modelArtifact
}

// NewLogisticOracle loads and validates the model artifact at path.
func NewLogisticOracle(path string) (*LogisticOracle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art modelArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if len(art.Weights) == 0 {
		return nil, fmt.Errorf("model artifact %s has no weights", path)
	}
	if len(art.FeatureNames) > 0 && len(art.FeatureNames) != len(art.Weights) {
		return nil, fmt.Errorf("model artifact %s schema mismatch: %d feature names vs %d weights",
			path, len(art.FeatureNames), len(art.Weights))
	}
	for i, w := range art.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("model artifact %s has non-finite weight at index %d", path, i)
		}
	}

	return &LogisticOracle{art: art}, nil
}

// SchemaLen reports the feature arity the model was trained on.
func (o *LogisticOracle) SchemaLen() int {
	return len(o.art.Weights)
}

// Version returns the artifact's model version string.
func (o *LogisticOracle) Version() string {
	return o.art.Version
}

// Predict scores one feature row. Rows whose length disagrees with the
// artifact's weight vector are rejected.
func (o *LogisticOracle) Predict(_ context.Context, symbol string, features []float64) (models.Prediction, error) {
	if len(features) != len(o.art.Weights) {
		return models.Prediction{}, fmt.Errorf("feature row has %d values, model expects %d",
			len(features), len(o.art.Weights))
	}

	z := o.art.Bias
	for i, w := range o.art.Weights {
		z += w * features[i]
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return models.Prediction{}, fmt.Errorf("non-finite model score for %s", symbol)
	}
	if z > scoreClamp {
		z = scoreClamp
	}
	if z < -scoreClamp {
		z = -scoreClamp
	}

	up := 100 / (1 + math.Exp(-z))
	down := 100 - up

	direction := models.DirectionUp
	confidence := up
	if down > up {
		direction = models.DirectionDown
		confidence = down
	}

	return models.Prediction{
		Symbol:          symbol,
		Direction:       direction,
		Confidence:      confidence,
		UpProbability:   up,
		DownProbability: down,
		ModelVersion:    o.art.Version,
		Timestamp:       time.Now().UTC(),
	}, nil
}

var _ domsvc.DirectionOracle = (*LogisticOracle)(nil)
