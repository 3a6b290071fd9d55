package model

import "time"

// ModelArtifact is a versioned, immutable snapshot of trained model
// parameters. The decision model holds a reference to the active artifact;
// the retrain pipeline produces new ones and performs the swap.
type ModelArtifact struct {
	Version   int         `json:"version"`
	TrainedAt time.Time   `json:"trained_at"`
	Weights   [][]float64 `json:"weights"` // one row per decision class, bias last
}
