// Package resolve determines which thread owns the lock each blocked
// thread is waiting on, by probing the stopped target's registers and lock
// structures through the debugger session.
//
// Resolution runs as a second pass over a fully parsed snapshot and is
// best effort throughout: every per-thread failure becomes a diagnostic
// and the remaining blocked threads are still probed.
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/darless/c-deadlock-detector/internal/errors"
	"github.com/darless/c-deadlock-detector/internal/gdb"
	"github.com/darless/c-deadlock-detector/internal/logging"
	"github.com/darless/c-deadlock-detector/internal/snapshot"
)

// ownerRE extracts the __owner field from a printed pthread_mutex_t.
var ownerRE = regexp.MustCompile(`__owner = ([0-9]+)`)

// ParseOwner extracts the owner LWP from a printed lock structure. An
// owner of zero is a valid parse: it means the lock is not held.
func ParseOwner(text string) (int, bool) {
	match := ownerRE.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	owner, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return owner, true
}

// RegisterProbe returns the command batch that focuses a thread's blocking
// frame and dumps its registers behind a separator line.
func RegisterProbe(threadIndex, frameIndex int) []string {
	return []string{
		fmt.Sprintf("thread %d", threadIndex),
		fmt.Sprintf("frame %d", frameIndex),
		`echo =======\n`,
		"info reg",
	}
}

// OwnerProbe returns the command that prints the lock structure at addr.
func OwnerProbe(primitiveType, addr string) []string {
	return []string{fmt.Sprintf("p *(%s*)%s", primitiveType, addr)}
}

// Resolver fills in lock address and owner LWP for the blocked threads of
// a snapshot.
type Resolver struct {
	querier gdb.Querier
	anchor  AnchorStrategy
	logger  *logging.Logger
}

// NewResolver returns a resolver probing through q. A nil strategy selects
// FixedPairAnchor.
func NewResolver(q gdb.Querier, anchor AnchorStrategy, logger *logging.Logger) *Resolver {
	if anchor == nil {
		anchor = FixedPairAnchor{}
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Resolver{
		querier: q,
		anchor:  anchor,
		logger:  logger.WithComponent("resolver"),
	}
}

// Resolve probes every blocked thread in the snapshot and records lock
// address and owner LWP on the ones it can resolve. The returned
// diagnostics describe the threads it could not.
func (r *Resolver) Resolve(ctx context.Context, snap *snapshot.Snapshot) []string {
	var diags []string
	for _, thread := range snap.BlockedThreads() {
		if ctx.Err() != nil {
			diags = append(diags, "lock resolution aborted: "+ctx.Err().Error())
			break
		}
		if err := r.resolveThread(ctx, thread); err != nil {
			r.logger.Warn("lock resolution failed",
				"thread", thread.Index,
				"lwp", thread.LWP,
				"error", err)
			diags = append(diags, err.Error())
		}
	}
	return diags
}

func (r *Resolver) resolveThread(ctx context.Context, thread *snapshot.Thread) error {
	frame := thread.BlockingFrame()
	if frame == nil {
		return errors.NewResolveError("blocked thread has no blocking frame", errors.ErrMalformedFrame).
			WithThread(thread.Index).
			WithLWP(thread.LWP)
	}
	if frame.Class != snapshot.ClassBlockingMutex {
		return errors.NewResolveError(
			fmt.Sprintf("unable to handle type %s", frame.Class.PrimitiveType()),
			errors.ErrUnsupportedPrimitive).
			WithThread(thread.Index).
			WithLWP(thread.LWP)
	}

	out, err := r.querier.Query(ctx, RegisterProbe(thread.Index, frame.Index)...)
	if err != nil {
		return errors.NewResolveError("register probe failed", err).
			WithThread(thread.Index).
			WithLWP(thread.LWP)
	}
	triples := ParseRegisterDump(out)
	addr, ok := r.anchor.FindLockAddress(triples)
	if !ok {
		return errors.NewResolveError(
			fmt.Sprintf("no lock address anchored in %d register triples", len(triples)),
			errors.ErrAnchorNotFound).
			WithThread(thread.Index).
			WithLWP(thread.LWP)
	}
	thread.LockAddr = addr

	out, err = r.querier.Query(ctx, OwnerProbe(frame.Class.PrimitiveType(), addr)...)
	if err != nil {
		return errors.NewResolveError("lock structure probe failed", err).
			WithThread(thread.Index).
			WithLWP(thread.LWP).
			WithAddress(addr)
	}
	owner, ok := ParseOwner(out)
	if !ok {
		return errors.NewResolveError(
			fmt.Sprintf("no match found for thread #%d frame #%d", thread.Index, frame.Index),
			errors.ErrOwnerNotFound).
			WithThread(thread.Index).
			WithAddress(addr)
	}
	if owner == 0 {
		return errors.NewResolveError(
			fmt.Sprintf("lock at %s is not currently owned", addr),
			errors.ErrOwnerNotFound).
			WithThread(thread.Index).
			WithAddress(addr)
	}

	thread.OwnerLWP = owner
	r.logger.Debug("resolved lock owner",
		"thread", thread.Index,
		"lwp", thread.LWP,
		"addr", addr,
		"owner_lwp", owner)
	return nil
}
