package modelstore

// Package modelstore persists trained model artifacts as opaque blobs.
//
// The engines serialize their fitted ensembles (trees, blend weights,
// feature-name lists, scaler parameters) to JSON and hand them here by name.
// Absence on load is a normal first-run outcome, not an error: engines fall
// back to training from scratch. Save replaces the whole artifact so a
// reload never observes a partially written model.

import "context"

// Store is the persistence boundary for trained model artifacts.
type Store interface {
	// Save stores (or replaces) the named artifact.
	Save(ctx context.Context, name string, artifact []byte) error

	// Load returns the named artifact. ok is false when no artifact with
	// that name exists; that is not an error.
	Load(ctx context.Context, name string) (artifact []byte, ok bool, err error)
}
