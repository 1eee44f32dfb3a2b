package combo

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidConfig is returned when a search is requested with an
	// inconsistent size range or value window.
	ErrInvalidConfig = errors.New("combo: invalid config")

	// ErrEnumerationTooLarge matches any *EnumerationTooLargeError.
	ErrEnumerationTooLarge = errors.New("combo: enumeration too large")

	// ErrCacheInconsistency is returned when the result cache serves an
	// entry computed before the partition was last invalidated.
	ErrCacheInconsistency = errors.New("combo: cache inconsistency")

	// errAbandoned is returned by a shared computation that was cancelled
	// because no caller was waiting for it any more.
	errAbandoned = errors.New("combo: search abandoned")
)

// EnumerationTooLargeError reports a search the guard refused to run.
type EnumerationTooLargeError struct {
	Total *big.Int
	Limit int64
}

func (e *EnumerationTooLargeError) Error() string {
	return fmt.Sprintf("combo: enumeration too large: %s subsets requested, limit is %d", e.Total, e.Limit)
}

// Is lets errors.Is(err, ErrEnumerationTooLarge) match.
func (e *EnumerationTooLargeError) Is(target error) bool {
	return target == ErrEnumerationTooLarge
}
