// Package waitgraph builds the waits-for relation over a resolved snapshot
// and finds every cycle in it.
//
// Each blocked thread waits on at most one lock, so every node has at most
// one outgoing edge. Cycle detection is a three-color depth-first walk:
// reaching a node that is already on the current path closes a cycle,
// reaching a node from an earlier finished walk does not. Every cycle is
// reported exactly once, rotated to start at its smallest thread index. A
// single-thread cycle is a thread waiting on a lock it already holds.
package waitgraph

import "github.com/darless/c-deadlock-detector/internal/snapshot"

// Edge is one waits-for relation: Waiter is blocked on a lock held by
// Owner.
type Edge struct {
	Waiter *snapshot.Thread
	Owner  *snapshot.Thread
}

// Cycle is an unresolvable waits-for loop, in waiting order: each thread
// waits on a lock held by the next, and the last waits on the first.
type Cycle struct {
	Threads []*snapshot.Thread
}

// Len returns the number of threads in the cycle.
func (c Cycle) Len() int {
	return len(c.Threads)
}

// Graph is the waits-for relation of one snapshot.
type Graph struct {
	// Edges holds the resolved waits-for relations in parse order.
	Edges []Edge

	// Unknown holds blocked threads whose lock owner could not be tied
	// to a thread in the snapshot: unresolved owners and owners that
	// exited between snapshot and probe.
	Unknown []*snapshot.Thread

	waiters []*snapshot.Thread
	next    map[int]*snapshot.Thread
}

// Build derives the waits-for graph from a resolved snapshot.
func Build(snap *snapshot.Snapshot) *Graph {
	g := &Graph{next: make(map[int]*snapshot.Thread)}
	for _, thread := range snap.BlockedThreads() {
		if thread.OwnerLWP == 0 {
			g.Unknown = append(g.Unknown, thread)
			continue
		}
		owner := snap.ThreadByLWP(thread.OwnerLWP)
		if owner == nil {
			g.Unknown = append(g.Unknown, thread)
			continue
		}
		g.Edges = append(g.Edges, Edge{Waiter: thread, Owner: owner})
		g.waiters = append(g.waiters, thread)
		g.next[thread.LWP] = owner
	}
	return g
}

// Owner returns the thread holding the lock the waiter is blocked on, or
// nil when the waiter has no resolved owner in the snapshot.
func (g *Graph) Owner(waiter *snapshot.Thread) *snapshot.Thread {
	return g.next[waiter.LWP]
}

// Node states of the depth-first walk.
type color uint8

const (
	white color = iota // not yet visited
	grey               // on the current path
	black              // finished
)

// Cycles returns every waits-for cycle exactly once, in discovery order.
func (g *Graph) Cycles() []Cycle {
	colors := make(map[int]color)
	var cycles []Cycle

	for _, start := range g.waiters {
		if colors[start.LWP] != white {
			continue
		}

		var path []*snapshot.Thread
		current := start
		for current != nil && colors[current.LWP] == white {
			colors[current.LWP] = grey
			path = append(path, current)
			current = g.next[current.LWP]
		}

		// A grey endpoint is on the current path: the path's suffix
		// from that node is a cycle. A black endpoint was finished by
		// an earlier walk and cannot extend into a new cycle.
		if current != nil && colors[current.LWP] == grey {
			for i, node := range path {
				if node == current {
					cycles = append(cycles, canonicalize(path[i:]))
					break
				}
			}
		}

		for _, node := range path {
			colors[node.LWP] = black
		}
	}
	return cycles
}

// canonicalize rotates a cycle so it starts at the smallest thread index,
// preserving waiting order.
func canonicalize(nodes []*snapshot.Thread) Cycle {
	smallest := 0
	for i, node := range nodes {
		if node.Index < nodes[smallest].Index {
			smallest = i
		}
	}
	rotated := make([]*snapshot.Thread, 0, len(nodes))
	rotated = append(rotated, nodes[smallest:]...)
	rotated = append(rotated, nodes[:smallest]...)
	return Cycle{Threads: rotated}
}
