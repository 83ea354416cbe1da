package models

import "time"

// Direction is the oracle's predicted next move for the underlying.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Prediction is one oracle output. Confidence is on a 0-100 scale and
// UpProbability+DownProbability always sum to 100. The confidence floor is
// applied by the consumer, never here.
type Prediction struct {
	Symbol          string
	Direction       Direction
	Confidence      float64
	UpProbability   float64
	DownProbability float64
	ModelVersion    string
	Timestamp       time.Time
}
