package models

import "time"

// Model is a catalog entry for a prediction model with a fixed per-call
// cost. The catalog is small and seeded by migration, so models use serial
// integer ids (they also travel as plain integers in queue messages).
type Model struct {
	ID                int32     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CostPerPrediction int64     `json:"cost_per_prediction"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}
