package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/cache"
	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	fio "github.com/matzehuels/fastroot/pkg/io"
	"github.com/matzehuels/fastroot/pkg/observability"
	"github.com/matzehuels/fastroot/pkg/rooting"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides the lifetime of new cache entries. Zero keeps
	// cache.TTLRoot and cache.TTLArtifact.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// ReadTrees splits r into Newick records. source names the input in hooks
// and errors.
func (r *Runner) ReadTrees(ctx context.Context, rd io.Reader, source string) ([]string, error) {
	start := time.Now()
	observability.Pipeline().OnParseStart(ctx, source)

	records, err := fio.SplitNewick(rd)
	if err == nil && len(records) == 0 {
		err = ferrors.New(ferrors.ErrCodeInvalidTree, "%s: no trees found", source)
	}
	observability.Pipeline().OnParseComplete(ctx, source, len(records), time.Since(start), err)
	if err != nil {
		if ferrors.GetCode(err) == "" {
			err = ferrors.Wrap(ferrors.ErrCodeInvalidTree, err, "read %s", source)
		}
		return nil, err
	}
	r.Logger.Debug("read trees", "source", source, "count", len(records))
	return records, nil
}

// Execute roots every Newick record in order. The batch stops at the first
// tree that cannot be rooted; the error carries its 1-based index.
func (r *Runner) Execute(ctx context.Context, records []string, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		Method:   opts.method,
		Trees:    make([]TreeResult, 0, len(records)),
		Warnings: opts.Warnings,
	}
	opts.Logger.Info("rooting trees", "method", opts.method.Description(), "trees", len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, classify(err, i+1)
		}
		tr, err := r.RootOne(ctx, i+1, rec, opts)
		if err != nil {
			return nil, err
		}
		result.Trees = append(result.Trees, tr)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// RootOne roots a single Newick record, consulting the cache first unless
// opts.Refresh is set. index is the 1-based position used in logs and errors.
func (r *Runner) RootOne(ctx context.Context, index int, record string, opts Options) (TreeResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return TreeResult{}, err
	}
	start := time.Now()
	record = strings.TrimSpace(record)
	cacheKey := r.Keyer.RootKey(cache.HashRecord(record), opts.KeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if tr, ok := r.lookup(ctx, cacheKey); ok {
			tr.Index = index
			tr.CacheHit = true
			tr.Duration = time.Since(start)
			opts.Logger.Info(tr.Describe(opts.method), "cached", true)
			return tr, nil
		}
	}

	t, err := fio.ParseNewick(record)
	if err != nil {
		return TreeResult{}, ferrors.Wrap(ferrors.ErrCodeInvalidTree, err, "tree %d", index)
	}

	cfg := opts.RootingConfig()
	cfg.Logger = opts.Logger.With("tree", index)
	res, err := rooting.Root(ctx, t, cfg)
	if err != nil {
		return TreeResult{}, classify(err, index)
	}

	tr := TreeResult{
		Index:     index,
		Newick:    make([]string, len(res.Alternatives)),
		Scores:    make([]float64, len(res.Alternatives)),
		Edges:     make([][]string, len(res.Alternatives)),
		Annotated: fio.AnnotatedNewick(res.Annotated, res.EdgeObjectives),
		Objective: res.Objective,
		Score:     res.Score,
		RootEdge:  res.Edge.Leaves,
		Offset:    res.Offset,
		Mu:        res.Mu,
		Truncated: res.Truncated,
		Stats:     res.Stats,
	}
	for i, alt := range res.Alternatives {
		tr.Newick[i] = fio.Newick(alt.Tree)
		tr.Scores[i] = alt.Score
		tr.Edges[i] = alt.Edge.Leaves
	}

	if data, err := json.Marshal(tr); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.ttl(cache.TTLRoot)); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "root", len(data))
		}
	}

	tr.Duration = time.Since(start)
	opts.Logger.Info(tr.Describe(opts.method), "leaves", tr.Stats.Leaves, "duration", tr.Duration)
	return tr, nil
}

// lookup returns a cached result. Read and decode failures count as misses.
func (r *Runner) lookup(ctx context.Context, key string) (TreeResult, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "root")
		return TreeResult{}, false
	}
	var tr TreeResult
	if err := json.Unmarshal(data, &tr); err != nil || len(tr.Newick) == 0 {
		observability.Cache().OnCacheMiss(ctx, "root")
		return TreeResult{}, false
	}
	observability.Cache().OnCacheHit(ctx, "root")
	return tr, true
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
