package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/fastroot/pkg/cache"
	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	fio "github.com/matzehuels/fastroot/pkg/io"
	"github.com/matzehuels/fastroot/pkg/observability"
	"github.com/matzehuels/fastroot/pkg/render"
	"github.com/matzehuels/fastroot/pkg/render/nodelink"
	"github.com/matzehuels/fastroot/pkg/rooting"
	"github.com/matzehuels/fastroot/pkg/tree"
)

// RenderOptions configures drawing a tree.
type RenderOptions struct {
	Format        render.Format
	Lengths       bool
	HighlightRoot bool

	// Scores names a rooting method. When set, the unrooted tree is drawn
	// with every edge labelled by that method's best objective.
	Scores string
}

// ArtifactKeyOpts returns cache key options for rendering.
func (o RenderOptions) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: string(o.Format),
		Layout: fmt.Sprintf("lengths=%t,highlight=%t,scores=%s", o.Lengths, o.HighlightRoot, o.Scores),
	}
}

// Render draws one Newick record, returning the artifact and whether it came
// from the cache.
func (r *Runner) Render(ctx context.Context, record string, opts RenderOptions) ([]byte, bool, error) {
	if opts.Format == "" {
		opts.Format = render.FormatSVG
	}
	if _, err := render.ParseFormat(string(opts.Format)); err != nil {
		return nil, false, ferrors.Wrap(ferrors.ErrCodeInvalidFormat, err, "render")
	}

	record = strings.TrimSpace(record)
	cacheKey := r.Keyer.ArtifactKey(cache.HashRecord(record), opts.ArtifactKeyOpts())
	if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	t, err := fio.ParseNewick(record)
	if err != nil {
		return nil, false, ferrors.Wrap(ferrors.ErrCodeInvalidTree, err, "render")
	}

	nopts := nodelink.Options{Lengths: opts.Lengths, HighlightRoot: opts.HighlightRoot}
	if opts.Scores != "" {
		if t, nopts.Scores, err = edgeScores(ctx, t, opts.Scores); err != nil {
			return nil, false, err
		}
		nopts.HighlightRoot = false
	}

	formats := []string{string(opts.Format)}
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, formats)
	dot := nodelink.ToDOT(t, nopts)
	data, err := nodelink.Render(ctx, dot, opts.Format)
	observability.Pipeline().OnRenderComplete(ctx, formats, time.Since(start), err)
	if err != nil {
		return nil, false, ferrors.Wrap(ferrors.ErrCodeInternal, err, "render %s", opts.Format)
	}

	if err := r.Cache.Set(ctx, cacheKey, data, r.ttl(cache.TTLArtifact)); err == nil {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	r.Logger.Debug("rendered tree", "format", opts.Format, "bytes", len(data), "duration", time.Since(start))
	return data, false, nil
}

// edgeScores scores every edge of t under method and returns the unrooted
// tree the scores are indexed by.
func edgeScores(ctx context.Context, t *tree.Tree, method string) (*tree.Tree, []float64, error) {
	m, err := rooting.ParseMethod(method)
	if err != nil {
		return nil, nil, ferrors.Wrap(ferrors.ErrCodeInvalidMethod, err, "render scores")
	}
	res, err := rooting.Root(ctx, t, rooting.Config{Method: m})
	if err != nil {
		return nil, nil, classify(err, 1)
	}
	return res.Annotated, res.EdgeObjectives, nil
}
