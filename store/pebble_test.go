package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fliplytics/internal/types"
)

func openTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := OpenPebble(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testOrder(id string, amount float64) types.Order {
	return types.Order{
		ID:          id,
		DateRaw:     "Mar 05, 2025",
		DateParsed:  time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		ProductName: "Nike Air Zoom " + id,
		Status:      types.StatusDelivered,
	}
}

func TestLoad_EmptyWhenNeverSaved(t *testing.T) {
	s := openTestStore(t)

	orders, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSaveAndLoad_PreservesSequence(t *testing.T) {
	s := openTestStore(t)

	in := []types.Order{testOrder("a", 100), testOrder("b", 200), testOrder("c", 300)}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)
	assert.Equal(t, in[0].DateParsed, out[0].DateParsed)
	assert.Equal(t, in[2].Amount, out[2].Amount)
}

func TestSave_ReplacesWholesale(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save([]types.Order{testOrder("a", 100), testOrder("b", 200), testOrder("c", 300)}))
	require.NoError(t, s.Save([]types.Order{testOrder("z", 999)}))

	out, err := s.Load()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "z", out[0].ID)
}

func TestSave_EmptyListClears(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save([]types.Order{testOrder("a", 100)}))
	require.NoError(t, s.Save(nil))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, out)
}
