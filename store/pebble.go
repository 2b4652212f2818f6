package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"fliplytics/internal/types"
)

// Order keys are zero-padded sequence numbers so that iteration returns
// the list in the order it was scraped.
const orderPrefix = "order/"

// PebbleStore implements OrderStore backed by PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Save deletes the existing order range and writes the new list in one
// atomic batch.
func (p *PebbleStore) Save(orders []types.Order) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange([]byte(orderPrefix), keyUpperBound(orderPrefix), nil); err != nil {
		return fmt.Errorf("pebble delete range: %w", err)
	}
	for i, order := range orders {
		val, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", order.ID, err)
		}
		key := fmt.Sprintf("%s%08d", orderPrefix, i)
		if err := batch.Set([]byte(key), val, nil); err != nil {
			return fmt.Errorf("pebble set: %w", err)
		}
	}
	if err := p.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("pebble apply: %w", err)
	}
	return nil
}

func (p *PebbleStore) Load() ([]types.Order, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(orderPrefix),
		UpperBound: keyUpperBound(orderPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	var orders []types.Order
	for it.First(); it.Valid(); it.Next() {
		var order types.Order
		if err := json.Unmarshal(it.Value(), &order); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Key(), err)
		}
		orders = append(orders, order)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	return orders, nil
}

func keyUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
