// Package cli implements the fastroot command-line interface.
//
// The root command reroots every tree of a Newick file under one of the
// minimum variance, midpoint, outgroup or root-to-tip regression criteria.
// Results are cached by tree content and options, in a local directory or
// in redis, so repeated runs over the same input are instant.
//
// # Commands
//
// The main commands are:
//   - root: Reroot the trees of a Newick file
//   - render: Draw one rooted tree as DOT, SVG or PNG
//   - cache: Inspect and clear the result cache
//   - config: Show the effective configuration
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so pipeline stages can log with fields.
//
// # Example
//
//	import "github.com/matzehuels/fastroot/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/pipeline"
)

// newLogger returns a logger writing to w at level, with "15:04:05.00"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one batch. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with keyvals and the elapsed time, for example
//
//	14:32:01.45 INFO rooted trees trees=12 method=MV cached=3 elapsed=1.234s
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

// treeFields returns the log fields describing one rooted tree.
func treeFields(tr pipeline.TreeResult) []any {
	fields := []any{"tree", tr.Index, "score", tr.Score, "leaves", tr.Stats.Leaves}
	if tr.CacheHit {
		fields = append(fields, "cached", true)
	}
	if tr.Truncated {
		fields = append(fields, "alternatives", len(tr.Newick))
	}
	return fields
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
