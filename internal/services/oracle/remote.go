package oracle

import (
	"context"
	"fmt"
	"math"
	"time"

	"StrikeGate/internal/domain/models"
	domsvc "StrikeGate/internal/domain/service"
)

const probabilitySumTolerance = 1e-6

// HTTPOracle delegates direction scoring to an external model service.
// The feature arity is fixed at construction so malformed rows are rejected
// locally instead of round-tripping to the service.
type HTTPOracle struct {
	base      *ServiceBase
	schemaLen int
	attempts  int
}

// NewHTTPOracle builds a remote oracle against serviceURL. schemaLen is the
// feature arity the service expects; attempts bounds transient-error retries.
func NewHTTPOracle(serviceURL string, timeout time.Duration, attempts, schemaLen int) *HTTPOracle {
	if attempts <= 0 {
		attempts = 1
	}
	return &HTTPOracle{
		base:      NewServiceBase(serviceURL, timeout),
		schemaLen: schemaLen,
		attempts:  attempts,
	}
}

type predictRequest struct {
	Symbol   string    `json:"symbol"`
	Features []float64 `json:"features"`
}

type predictResponse struct {
	UpProbability   float64 `json:"up_prob"`
	DownProbability float64 `json:"down_prob"`
	ModelVersion    string  `json:"model_version"`
}

// SchemaLen reports the feature arity the remote service expects.
func (o *HTTPOracle) SchemaLen() int {
	return o.schemaLen
}

// Predict posts one feature row to the model service and validates the reply.
func (o *HTTPOracle) Predict(ctx context.Context, symbol string, features []float64) (models.Prediction, error) {
	if len(features) != o.schemaLen {
		return models.Prediction{}, fmt.Errorf("feature row has %d values, service expects %d",
			len(features), o.schemaLen)
	}

	var resp predictResponse
	err := o.base.PostJSONWithRetry(ctx, "/predict", predictRequest{
		Symbol:   symbol,
		Features: features,
	}, &resp, o.attempts)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("remote prediction for %s: %w", symbol, err)
	}

	if err := validateProbabilities(resp.UpProbability, resp.DownProbability); err != nil {
		return models.Prediction{}, fmt.Errorf("remote prediction for %s: %w", symbol, err)
	}

	direction := models.DirectionUp
	confidence := resp.UpProbability
	if resp.DownProbability > resp.UpProbability {
		direction = models.DirectionDown
		confidence = resp.DownProbability
	}

	return models.Prediction{
		Symbol:          symbol,
		Direction:       direction,
		Confidence:      confidence,
		UpProbability:   resp.UpProbability,
		DownProbability: resp.DownProbability,
		ModelVersion:    resp.ModelVersion,
		Timestamp:       time.Now().UTC(),
	}, nil
}

func validateProbabilities(up, down float64) error {
	if math.IsNaN(up) || math.IsNaN(down) {
		return fmt.Errorf("non-finite probabilities %v/%v", up, down)
	}
	if up < 0 || up > 100 || down < 0 || down > 100 {
		return fmt.Errorf("probabilities %v/%v outside [0,100]", up, down)
	}
	if math.Abs(up+down-100) > probabilitySumTolerance {
		return fmt.Errorf("probabilities %v/%v do not sum to 100", up, down)
	}
	return nil
}

var _ domsvc.DirectionOracle = (*HTTPOracle)(nil)
