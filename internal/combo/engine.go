package combo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/erazemk/znamke/internal/model"
)

// Options configures an Engine.
type Options struct {
	// MaxSubsets is the guard ceiling. Zero or less means DefaultMaxSubsets.
	MaxSubsets int64
	// Workers greater than one enables one enumeration shard per subset size.
	Workers int
	// Cache stores results per partition. Nil disables caching.
	Cache  ResultCache
	Logger *slog.Logger
}

// Request is one search over a user's inventory.
type Request struct {
	// PartitionKey identifies the inventory the items were loaded from. An
	// empty key bypasses the cache.
	PartitionKey string
	Items        []model.InventoryItem
	// Load, when set, supplies the items instead of Items. It is called
	// only on a cache miss, after the partition generation was read, so a
	// mutation that invalidates the partition while Load runs keeps the
	// result out of the cache.
	Load   func(ctx context.Context) ([]model.InventoryItem, error)
	Config model.CalcConfig
	// Pinned lists catalog IDs every combination must contain, in addition
	// to the catalog items already in the postcard desk.
	Pinned []int64
}

// Result is the outcome of a search. Results may be shared between callers
// and must be treated as read-only.
type Result struct {
	Combinations []Combination `json:"combinations"`
	Candidates   int           `json:"candidates"`
	Examined     int64         `json:"examined"`
	Total        int64         `json:"total"`
	Cached       bool          `json:"cached"`
}

// Engine runs combination searches and caches their results.
type Engine struct {
	guard   Guard
	workers int
	cache   ResultCache
	logger  *slog.Logger

	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
	flights     map[string]*flight
}

// New returns an Engine configured by opts.
func New(opts Options) *Engine {
	limit := opts.MaxSubsets
	if limit <= 0 {
		limit = DefaultMaxSubsets
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		guard:       Guard{Limit: limit},
		workers:     max(opts.Workers, 1),
		cache:       opts.Cache,
		logger:      logger,
		generations: make(map[string]uint64),
		flights:     make(map[string]*flight),
	}
}

// Limit returns the guard ceiling in effect.
func (e *Engine) Limit() int64 {
	return e.guard.Limit
}

// Invalidate discards the cached result for a partition. Searches already
// running against the old inventory will not write their result back.
func (e *Engine) Invalidate(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generations[key]++
	if e.cache != nil {
		e.cache.Delete(key)
	}
}

// Search returns every distinct combination of the inventory whose total value
// falls inside the configured window.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	if err := req.Config.Validate(); err != nil {
		searchCount.WithLabelValues(outcomeInvalid).Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if e.cache == nil || req.PartitionKey == "" {
		res, err := e.compute(ctx, req)
		if err != nil {
			return nil, e.fail(req.PartitionKey, err)
		}
		searchCount.WithLabelValues(outcomeOK).Inc()
		return res, nil
	}

	for {
		res, err := e.searchCached(ctx, req)
		if errors.Is(err, errAbandoned) {
			if ctx.Err() == nil {
				// Every caller waiting before this one joined gave up.
				continue
			}
			err = ctx.Err()
		}
		if err != nil {
			return nil, e.fail(req.PartitionKey, err)
		}
		return res, nil
	}
}

// searchCached serves req from the cache or from a computation shared with
// every concurrent caller asking the same question. The computation runs
// under a context of its own that is cancelled only once all waiting
// callers have given up.
func (e *Engine) searchCached(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp := fingerprint(req)
	cached, gen, err := e.lookup(req.PartitionKey, fp)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		cacheHitCount.Inc()
		searchCount.WithLabelValues(outcomeCached).Inc()
		res := *cached
		res.Cached = true
		return &res, nil
	}
	cacheMissCount.Inc()

	key := req.PartitionKey + "@" + strconv.FormatUint(gen, 10) + "#" + fp
	f := e.join(ctx, key)
	defer e.leave(key, f)

	ch := e.group.DoChan(key, func() (any, error) {
		res, err := e.compute(f.ctx, req)
		if err != nil {
			if f.ctx.Err() != nil {
				return nil, errAbandoned
			}
			return nil, err
		}
		e.store(req.PartitionKey, gen, fp, res)
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		searchCount.WithLabelValues(outcomeOK).Inc()
		res := *r.Val.(*Result)
		return &res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flight is the context shared by the callers waiting on one computation.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// join registers a caller of the computation named key. The first caller
// creates the flight context; it keeps the caller's values but not its
// cancellation.
func (e *Engine) join(ctx context.Context, key string) *flight {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		e.flights[key] = f
	}
	f.waiters++
	return f
}

// leave unregisters a caller. The last one out cancels the computation.
func (e *Engine) leave(key string, f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if e.flights[key] == f {
		delete(e.flights, key)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// lookup returns the cached result for key, if it matches fp, along with
// the partition's current generation.
func (e *Engine) lookup(key, fp string) (*Result, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	gen := e.generations[key]
	entry, ok := e.cache.Get(key)
	if !ok || entry == nil {
		return nil, gen, nil
	}
	if entry.Generation != gen {
		e.cache.Delete(key)
		return nil, gen, fmt.Errorf("%w: partition %q cached at generation %d, current is %d",
			ErrCacheInconsistency, key, entry.Generation, gen)
	}
	if entry.Fingerprint != fp {
		return nil, gen, nil
	}
	return entry.Result, gen, nil
}

// store writes res back unless the partition was invalidated meanwhile.
func (e *Engine) store(key string, gen uint64, fp string, res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.generations[key] != gen {
		e.logger.Debug("discarding stale search result", "partition", key, "generation", gen)
		return
	}
	e.cache.Set(key, &CacheEntry{Generation: gen, Fingerprint: fp, Result: res})
}

func (e *Engine) fail(key string, err error) error {
	var tooLarge *EnumerationTooLargeError
	switch {
	case errors.As(err, &tooLarge):
		searchCount.WithLabelValues(outcomeTooLarge).Inc()
		e.logger.Info("search refused", "partition", key, "total", tooLarge.Total.String(), "limit", tooLarge.Limit)
	case errors.Is(err, ErrCacheInconsistency):
		searchCount.WithLabelValues(outcomeInconsistent).Inc()
		e.logger.Error("result cache inconsistency", "partition", key, "error", err)
	case isContextErr(err):
		searchCount.WithLabelValues(outcomeCancelled).Inc()
	}
	return err
}

// compute runs the full pipeline: candidate selection, guard, enumeration,
// filtering and assembly.
func (e *Engine) compute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	cfg := req.Config

	items := req.Items
	if req.Load != nil {
		var err error
		if items, err = req.Load(ctx); err != nil {
			return nil, fmt.Errorf("loading inventory: %w", err)
		}
	}

	cands := SelectCandidates(items, cfg.AllowRepeats)
	total, err := e.guard.Check(len(cands), cfg.MinCount, cfg.MaxCount)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	window := Window{Min: cfg.TargetValue, Max: cfg.MaxValue}
	pinned := PinnedCatalogIDs(items, req.Pinned)

	var (
		matches  []Match
		examined int64
	)
	if e.workers > 1 {
		matches, examined, err = e.runParallel(ctx, cands, cfg.MinCount, cfg.MaxCount, window, pinned)
	} else {
		matches, examined, err = runSequential(ctx, cands, cfg.MinCount, cfg.MaxCount, window, pinned)
	}
	if err != nil {
		return nil, err
	}
	examinedCount.Add(float64(examined))

	res := &Result{
		Combinations: Assemble(cands, matches),
		Candidates:   len(cands),
		Examined:     examined,
		Total:        total,
	}
	e.logger.Debug("search finished",
		"partition", req.PartitionKey,
		"candidates", len(cands),
		"examined", examined,
		"combinations", len(res.Combinations),
		"duration", time.Since(start),
	)
	return res, nil
}

func runSequential(ctx context.Context, cands []model.InventoryItem, minSize, maxSize int, window Window, pinned []int64) ([]Match, int64, error) {
	f := NewFilter(cands, window, pinned)
	var matches []Match
	for idx := range Enumerate(ctx, len(cands), minSize, maxSize) {
		if m, ok := f.Accept(idx); ok {
			matches = append(matches, m)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return matches, f.Examined(), nil
}

// runParallel enumerates each subset size in its own goroutine and merges
// the shards in size order, so deduplication keeps the same first-seen
// subsets as runSequential.
func (e *Engine) runParallel(ctx context.Context, cands []model.InventoryItem, minSize, maxSize int, window Window, pinned []int64) ([]Match, int64, error) {
	n := len(cands)
	lo, hi := max(minSize, 0), min(maxSize, n)
	if lo > hi {
		return nil, 0, nil
	}

	m := newMatcher(cands, window, pinned)
	shards := make([][]Match, hi-lo+1)
	counts := make([]int64, hi-lo+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range shards {
		k := lo + i
		g.Go(func() error {
			for idx := range EnumerateSize(gctx, n, k) {
				counts[i]++
				if match, ok := m.match(idx); ok {
					shards[i] = append(shards[i], match)
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	seen := newSignatureSet()
	var (
		matches  []Match
		examined int64
	)
	for i, shard := range shards {
		examined += counts[i]
		for _, match := range shard {
			if seen.add(match.Signature) {
				matches = append(matches, match)
			}
		}
	}
	return matches, examined, nil
}

// fingerprint identifies the search parameters of req apart from its items.
func fingerprint(req Request) string {
	cfg := req.Config
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%d-%s-%s-%t", cfg.MinCount, cfg.MaxCount,
		cfg.TargetValue.String(), cfg.MaxValue.String(), cfg.AllowRepeats)
	for _, id := range PinnedCatalogIDs(nil, req.Pinned) {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
