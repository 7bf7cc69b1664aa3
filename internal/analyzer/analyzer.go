// Package analyzer drives the full detection pipeline against one stopped
// target: dump all thread backtraces, attach thread names, resolve lock
// owners, then build the waits-for graph and extract its cycles.
//
// Only the opening backtrace can abort a run. Every later stage degrades
// to diagnostics so a partial result still produces a report.
package analyzer

import (
	"context"
	"strings"

	"github.com/darless/c-deadlock-detector/internal/errors"
	"github.com/darless/c-deadlock-detector/internal/gdb"
	"github.com/darless/c-deadlock-detector/internal/logging"
	"github.com/darless/c-deadlock-detector/internal/resolve"
	"github.com/darless/c-deadlock-detector/internal/snapshot"
	"github.com/darless/c-deadlock-detector/internal/waitgraph"
)

// Commands issued for the two full-process dumps.
const (
	BacktraceCommand = "thread apply all bt"
	ListingCommand   = "info threads"
)

// Options configure a single analysis run.
type Options struct {
	// Anchor overrides the lock address anchor strategy. Nil selects
	// the resolver's default.
	Anchor resolve.AnchorStrategy
}

// Result is the complete outcome of one run.
type Result struct {
	Snapshot    *snapshot.Snapshot
	Graph       *waitgraph.Graph
	Cycles      []waitgraph.Cycle
	Diagnostics []string
}

// Deadlocked reports whether the run found at least one waits-for cycle.
func (r *Result) Deadlocked() bool {
	return len(r.Cycles) > 0
}

// Analyzer runs the pipeline over one debugger session.
type Analyzer struct {
	querier gdb.Querier
	parser  *snapshot.Parser
	anchor  resolve.AnchorStrategy
	logger  *logging.Logger
}

// New returns an analyzer driving the given session.
func New(q gdb.Querier, opts Options, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Analyzer{
		querier: q,
		parser:  snapshot.NewParser(logger),
		anchor:  opts.Anchor,
		logger:  logger.WithComponent("analyzer"),
	}
}

// Analyze performs one full run. A returned error means the target could
// not be snapshotted at all; every lesser failure is carried in the
// result's diagnostics instead.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	if a.querier == nil {
		return nil, errors.NewValidationError("no debugger session")
	}

	out, err := a.querier.Query(ctx, BacktraceCommand)
	if err != nil {
		return nil, errors.NewSessionError("cannot snapshot target", err).
			WithSeverity(errors.SeverityCritical)
	}
	if strings.TrimSpace(out) == "" {
		return nil, errors.NewSessionError("backtrace dump produced no output", errors.ErrEmptyOutput).
			WithSeverity(errors.SeverityCritical)
	}

	snap, diags := a.parser.ParseBacktrace(out)
	a.logger.Info("snapshot parsed",
		"threads", len(snap.Threads),
		"blocked", snap.NumBlocked)

	listing, err := a.querier.Query(ctx, ListingCommand)
	if err != nil {
		a.logger.Warn("thread listing unavailable", "error", err)
		diags = append(diags, "thread names unavailable: "+err.Error())
	} else {
		diags = append(diags, a.parser.AttachNames(snap, listing)...)
	}

	resolver := resolve.NewResolver(a.querier, a.anchor, a.logger)
	diags = append(diags, resolver.Resolve(ctx, snap)...)

	graph := waitgraph.Build(snap)
	cycles := graph.Cycles()
	a.logger.Info("analysis complete",
		"edges", len(graph.Edges),
		"unknown_owners", len(graph.Unknown),
		"cycles", len(cycles),
		"diagnostics", len(diags))

	return &Result{
		Snapshot:    snap,
		Graph:       graph,
		Cycles:      cycles,
		Diagnostics: diags,
	}, nil
}
