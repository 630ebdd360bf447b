// Package pqueue implements a decrease-key-capable priority queue used by
// the pathfinder to relax edges in place. The design note in the source
// model calls for a Fibonacci heap; this is an indexed binary heap keyed
// by node id instead; amortized O(log n) insert/decrease-key/extract-min,
// good cache behavior, and it fits entirely in memory for any network
// that fits in memory, which the intrusive Fibonacci heap was only ever
// chosen for in the original to get O(1) amortized decrease-key.
package pqueue

import (
	"container/heap"

	"github.com/ardalan-sia/dta-sim/internal/simerr"
)

// Handle identifies a previously inserted item so its key can later be
// decreased. One handle is held per graph node by the pathfinder.
type Handle int

type item struct {
	data  string
	key   float64
	index int
}

// Queue is a min-priority-queue over (data, key) pairs, one handle per
// item, supporting decrease-key.
type Queue struct {
	items   []*item
	handles map[Handle]*item
	next    Handle
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{handles: make(map[Handle]*item)}
}

// Empty reports whether the queue holds no items.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Len implements container/heap.Interface.
func (q *Queue) Len() int { return len(q.items) }

// Less implements container/heap.Interface.
func (q *Queue) Less(i, j int) bool { return q.items[i].key < q.items[j].key }

// Swap implements container/heap.Interface.
func (q *Queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

// Push implements container/heap.Interface. Not used directly; use Insert.
func (q *Queue) Push(x interface{}) {
	it := x.(*item)
	it.index = len(q.items)
	q.items = append(q.items, it)
}

// Pop implements container/heap.Interface. Not used directly; use ExtractMin.
func (q *Queue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return it
}

// Insert adds data keyed by key and returns a handle for later decrease-key.
func (q *Queue) Insert(data string, key float64) Handle {
	it := &item{data: data, key: key}
	heap.Push(q, it)
	h := q.next
	q.next++
	q.handles[h] = it
	return h
}

// Minimum returns the data and key of the minimum-key item without removing it.
func (q *Queue) Minimum() (string, float64) {
	it := q.items[0]
	return it.data, it.key
}

// ExtractMin removes and returns the minimum-key item.
func (q *Queue) ExtractMin() (string, float64) {
	it := heap.Pop(q).(*item)
	return it.data, it.key
}

// DecreaseKey lowers the key of the item addressed by h. Calling it with a
// key not strictly less than the current key signals a programming error
// and panics with simerr.ErrInternalInvariant, per the source contract.
func (q *Queue) DecreaseKey(h Handle, newKey float64) {
	it, ok := q.handles[h]
	if !ok {
		panic(simerr.Wrap(simerr.ErrInternalInvariant, "decrease-key on unknown handle"))
	}
	if newKey >= it.key {
		panic(simerr.Wrapf(simerr.ErrInternalInvariant,
			"decrease-key to a non-decreasing key: have %v, got %v", it.key, newKey))
	}
	it.key = newKey
	heap.Fix(q, it.index)
}
