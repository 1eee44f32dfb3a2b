package combo

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/erazemk/znamke/internal/model"
)

// Combination is one search result.
type Combination struct {
	Items     []model.InventoryItem `json:"items"`
	Sum       decimal.Decimal       `json:"sum"`
	Signature Signature             `json:"signature"`
}

// Assemble turns matches into combinations sorted by ascending sum, ties
// broken by signature. Items inside a combination are ordered by value,
// then catalog ID, then ID.
func Assemble(cands []model.InventoryItem, matches []Match) []Combination {
	combos := make([]Combination, 0, len(matches))
	for _, m := range matches {
		items := make([]model.InventoryItem, len(m.Indices))
		for j, i := range m.Indices {
			items[j] = cands[i]
		}
		slices.SortFunc(items, compareItems)
		combos = append(combos, Combination{Items: items, Sum: m.Sum, Signature: m.Signature})
	}

	slices.SortStableFunc(combos, func(a, b Combination) int {
		if c := a.Sum.Cmp(b.Sum); c != 0 {
			return c
		}
		return a.Signature.Compare(b.Signature)
	})
	return combos
}

func compareItems(a, b model.InventoryItem) int {
	return cmp.Or(
		a.Value().Cmp(b.Value()),
		cmp.Compare(a.CatalogID, b.CatalogID),
		cmp.Compare(a.ID, b.ID),
	)
}
