// Package store persists the canonical order list in a local key-value
// database. Each successful sync replaces the dataset wholesale; there is
// no reconciliation against prior state. Merge-by-identifier would be the
// natural extension point here if cross-sync dedup is ever wanted.
package store

import "fliplytics/internal/types"

// OrderStore holds the canonical order list.
type OrderStore interface {
	// Save replaces the stored order list with orders, preserving their
	// sequence.
	Save(orders []types.Order) error

	// Load returns the stored order list, empty if nothing was ever saved.
	Load() ([]types.Order, error)

	Close() error
}
