// Package domain defines the core persistence models for the specials
// engine. This file holds the Idempotency model backing safe client
// retries of claim requests.
package domain

import "time"

// Idempotency records the outcome of a previously processed claim
// request, keyed by (claimant_key, special_id, key). Without a token a
// naive client retry can legitimately produce a second claim on a
// per-visit special; with one, the original claim is replayed instead
// of re-executing the coordinator.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClaimantKey string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_claimant_special_key,priority:1"`
	SpecialID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_claimant_special_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_claimant_special_key,priority:3"`
	ClaimID     string    `gorm:"type:TEXT NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
