package combo

import (
	"cmp"
	"slices"

	"github.com/erazemk/znamke/internal/model"
)

// SelectCandidates reduces an inventory to the items a search enumerates.
//
// Items on the removed desk are dropped. The rest are ordered by creation
// time, then ID. When allowRepeats is false only the first item of each
// catalog item is kept, except items flagged AllowRepeat which are always
// kept. The input slice is not modified.
func SelectCandidates(items []model.InventoryItem, allowRepeats bool) []model.InventoryItem {
	ordered := make([]model.InventoryItem, 0, len(items))
	for _, it := range items {
		if it.DeskType == model.DeskRemoved {
			continue
		}
		ordered = append(ordered, it)
	}
	slices.SortStableFunc(ordered, func(a, b model.InventoryItem) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	if allowRepeats {
		return ordered
	}

	seen := make(map[int64]bool, len(ordered))
	out := ordered[:0]
	for _, it := range ordered {
		if it.AllowRepeat {
			out = append(out, it)
			continue
		}
		if seen[it.CatalogID] {
			continue
		}
		seen[it.CatalogID] = true
		out = append(out, it)
	}
	return out
}

// PinnedCatalogIDs merges explicitly pinned catalog IDs with those of items
// staged on the postcard desk. The result is sorted and free of duplicates.
func PinnedCatalogIDs(items []model.InventoryItem, explicit []int64) []int64 {
	pinned := slices.Clone(explicit)
	for _, it := range items {
		if it.DeskType == model.DeskPostcard {
			pinned = append(pinned, it.CatalogID)
		}
	}
	slices.Sort(pinned)
	return slices.Compact(pinned)
}
