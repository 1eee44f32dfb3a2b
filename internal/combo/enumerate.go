package combo

import (
	"context"
	"iter"

	"gonum.org/v1/gonum/stat/combin"
)

// cancelCheckInterval is how many subsets are produced between context checks.
const cancelCheckInterval = 1024

// Enumerate lazily yields every subset of sizes minSize..maxSize of the
// indices 0..n-1, smallest sizes first. The yielded slice is reused between
// iterations; callers must copy it to keep it. Enumeration stops early when
// ctx is cancelled or the consumer stops ranging.
//
// Callers are expected to bound n and the size range with a Guard first.
func Enumerate(ctx context.Context, n, minSize, maxSize int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		for k := max(minSize, 0); k <= maxSize && k <= n; k++ {
			for idx := range EnumerateSize(ctx, n, k) {
				if !yield(idx) {
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// EnumerateSize lazily yields every k-subset of the indices 0..n-1 in
// lexicographic order.
func EnumerateSize(ctx context.Context, n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k < 0 || k > n {
			return
		}
		gen := combin.NewCombinationGenerator(n, k)
		buf := make([]int, k)
		for produced := 0; gen.Next(); produced++ {
			if produced%cancelCheckInterval == 0 && ctx.Err() != nil {
				return
			}
			if !yield(gen.Combination(buf)) {
				return
			}
		}
	}
}
