package recommender

import (
	"context"

	"github.com/tecpap/tecpap-ai/internal/models"
)

// Package recommender ranks production lines two ways: backward-looking on a
// trailing window of observed metrics, and forward-looking for a concrete
// product/quantity request.
//
// Responsibilities:
//   - get_best_line: weighted score over the last 7 days of observations,
//     rewarding both high averages and low OEE variance
//   - recommend: blend predicted OEE with line characteristics to pick a
//     line for a production order, with planning figures per candidate
//
// Both operations skip lines with no usable observations and always return a
// total ordering over the remaining lines; ties resolve to the canonical
// line order.

// Recommender is the line ranking engine.
type Recommender interface {
	// BestLine ranks lines on observed trailing-window metrics.
	BestLine(ctx context.Context) (*models.BestLineResult, error)

	// Recommend picks the line to run a product and quantity on, with
	// alternatives sorted by score descending.
	Recommend(ctx context.Context, productType string, quantity int) (*models.Recommendation, error)
}
