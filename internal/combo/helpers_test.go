package combo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/znamke/internal/model"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// stamp returns an available inventory item created id minutes after epoch.
func stamp(id, catalogID int64, value string) model.InventoryItem {
	return model.InventoryItem{
		ID:           id,
		CatalogID:    catalogID,
		DeskType:     model.DeskAvailable,
		CatalogValue: decimal.RequireFromString(value),
		CreatedAt:    epoch.Add(time.Duration(id) * time.Minute),
	}
}

func onDesk(it model.InventoryItem, desk string) model.InventoryItem {
	it.DeskType = desk
	return it
}

func repeatable(it model.InventoryItem) model.InventoryItem {
	it.AllowRepeat = true
	return it
}

func config(minCount, maxCount int, target, maxValue string, allowRepeats bool) model.CalcConfig {
	return model.CalcConfig{
		MinCount:     minCount,
		MaxCount:     maxCount,
		TargetValue:  decimal.RequireFromString(target),
		MaxValue:     decimal.RequireFromString(maxValue),
		AllowRepeats: allowRepeats,
	}
}

func ids(items []model.InventoryItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// summarize renders combinations as "sum:signature" for comparison.
func summarize(combos []Combination) []string {
	out := make([]string, len(combos))
	for i, c := range combos {
		out[i] = fmt.Sprintf("%s:%v", c.Sum, c.Signature)
	}
	return out
}
