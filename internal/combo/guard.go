package combo

import "math/big"

// DefaultMaxSubsets is the guard ceiling used when none is configured.
const DefaultMaxSubsets = 1_000_000

// TotalSubsets returns the exact number of subsets of sizes minSize..maxSize
// drawn from n candidates, i.e. the sum of C(n, k). Sizes larger than n
// contribute nothing.
func TotalSubsets(n, minSize, maxSize int) *big.Int {
	total := new(big.Int)
	var c big.Int
	for k := max(minSize, 0); k <= maxSize && k <= n; k++ {
		total.Add(total, c.Binomial(int64(n), int64(k)))
	}
	return total
}

// Guard rejects searches whose enumeration would exceed Limit subsets.
type Guard struct {
	Limit int64
}

// Check returns the number of subsets the search will examine, or an
// *EnumerationTooLargeError if that number exceeds the limit.
func (g Guard) Check(n, minSize, maxSize int) (int64, error) {
	total := TotalSubsets(n, minSize, maxSize)
	if total.Cmp(big.NewInt(g.Limit)) > 0 {
		return 0, &EnumerationTooLargeError{Total: total, Limit: g.Limit}
	}
	return total.Int64(), nil
}
