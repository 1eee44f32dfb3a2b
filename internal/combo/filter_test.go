package combo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/znamke/internal/model"
)

func window(lo, hi string) Window {
	return Window{Min: decimal.RequireFromString(lo), Max: decimal.RequireFromString(hi)}
}

func TestWindowInclusive(t *testing.T) {
	w := window("10", "20")
	assert.True(t, w.Contains(decimal.NewFromInt(10)))
	assert.True(t, w.Contains(decimal.NewFromInt(20)))
	assert.True(t, w.Contains(decimal.RequireFromString("15.5")))
	assert.False(t, w.Contains(decimal.RequireFromString("9.99")))
	assert.False(t, w.Contains(decimal.RequireFromString("20.01")))
}

func TestFilterDeduplicatesBySignature(t *testing.T) {
	cands := []model.InventoryItem{stamp(1, 10, "5"), stamp(2, 10, "5"), stamp(3, 20, "5")}
	f := NewFilter(cands, window("5", "10"), nil)

	m, ok := f.Accept([]int{0, 2})
	require.True(t, ok)
	assert.Equal(t, Signature{10, 20}, m.Signature)
	assert.Equal(t, "10", m.Sum.String())

	_, ok = f.Accept([]int{1, 2})
	assert.False(t, ok, "same catalog items through another instance")

	m, ok = f.Accept([]int{0, 1})
	require.True(t, ok)
	assert.Equal(t, Signature{10, 10}, m.Signature)

	assert.EqualValues(t, 3, f.Examined())
}

func TestFilterPins(t *testing.T) {
	cands := []model.InventoryItem{stamp(1, 10, "5"), stamp(2, 20, "5"), stamp(3, 30, "5")}
	f := NewFilter(cands, window("0", "100"), []int64{10, 30})

	_, ok := f.Accept([]int{0})
	assert.False(t, ok)
	_, ok = f.Accept([]int{0, 1})
	assert.False(t, ok)
	_, ok = f.Accept([]int{0, 2})
	assert.True(t, ok)
	_, ok = f.Accept([]int{0, 1, 2})
	assert.True(t, ok)
}

func TestFilterCopiesIndices(t *testing.T) {
	cands := []model.InventoryItem{stamp(1, 10, "5"), stamp(2, 20, "5")}
	f := NewFilter(cands, window("0", "100"), nil)

	idx := []int{0}
	m, ok := f.Accept(idx)
	require.True(t, ok)
	idx[0] = 1
	assert.Equal(t, []int{0}, m.Indices)
}

func TestSignatureSetCollisionSafe(t *testing.T) {
	s := newSignatureSet()
	assert.True(t, s.add(Signature{1, 2}))
	assert.False(t, s.add(Signature{1, 2}))
	assert.True(t, s.add(Signature{2, 1}))
	assert.True(t, s.add(Signature{1, 2, 2}))
}
