// Package cache holds short-lived settlement summaries keyed by travel.
//
// Entries are derived state: callers treat every error as a miss and fall
// back to recomputing from storage.
package cache

import (
	"context"
	"errors"

	"github.com/mmynk/tripsettle/internal/models"
)

// ErrMiss is returned by Get when no live entry exists for a travel.
var ErrMiss = errors.New("cache miss")

// SummaryCache stores the last computed summary of a travel.
type SummaryCache interface {
	Get(ctx context.Context, travelID string) (*models.Summary, error)
	Set(ctx context.Context, travelID string, summary *models.Summary) error
	Invalidate(ctx context.Context, travelID string) error
}

func makeKey(travelID string) string {
	return "tripsettle:summary:" + travelID
}
