package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/pipeline"
	"github.com/matzehuels/fastroot/pkg/rooting"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"summary at info", log.InfoLevel, func(l *log.Logger) { l.Info("rooted trees", "trees", 2) }, true},
		{"per-tree line hidden at info", log.InfoLevel, func(l *log.Logger) { l.Debug("rooted tree", "tree", 1) }, false},
		{"per-tree line at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("rooted tree", "tree", 1) }, true},
		{"cache warning at info", log.InfoLevel, func(l *log.Logger) { l.Warn("cache disabled") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressLogsRunFields(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("rooted trees", "trees", 3, "method", rooting.Regression, "cached", 1)

	out := buf.String()
	for _, want := range []string{"rooted trees", "trees=3", "method=RTT", "cached=1", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("progress line missing %q: %s", want, out)
		}
	}
}

func TestTreeFields(t *testing.T) {
	tests := []struct {
		name string
		tr   pipeline.TreeResult
		want []any
	}{
		{
			name: "fresh",
			tr:   pipeline.TreeResult{Index: 2, Score: 0.5, Stats: rooting.Stats{Leaves: 5}},
			want: []any{"tree", 2, "score", 0.5, "leaves", 5},
		},
		{
			name: "cached and truncated",
			tr: pipeline.TreeResult{
				Index: 1, Score: 0, Newick: []string{"(A:1,B:1);", "(B:1,A:1);"},
				Truncated: true, CacheHit: true, Stats: rooting.Stats{Leaves: 2},
			},
			want: []any{"tree", 1, "score", 0.0, "leaves", 2, "cached", true, "alternatives", 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := treeFields(tt.tr)
			if len(got) != len(tt.want) {
				t.Fatalf("treeFields = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("bare context should fall back to log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	ctx := withLogger(context.Background(), custom)
	if got := loggerFromContext(ctx); got != custom {
		t.Fatal("loggerFromContext should return the attached logger")
	}
	loggerFromContext(ctx).Info("rooted trees")
	if !strings.Contains(buf.String(), "rooted trees") {
		t.Errorf("attached logger did not write: %q", buf.String())
	}
}
