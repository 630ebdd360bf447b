// Package transport realizes the SPMD message-passing contract (all-reduce,
// all-to-all, barrier-ordered gather) over goroutines and channels —
// the single-binary equivalent of peer processes, grounded on the
// teacher's own concurrency idiom of one goroutine per concurrent unit
// joined by a sync.WaitGroup. Swapping in a real multi-process transport
// later only requires implementing the same Peer interface.
package transport

import "sync"

// Peer is one participant in a collective operation.
type Peer interface {
	Rank() int
}

// Ring records the number of peers taking part in collective operations.
// The operations themselves (AllReduceInt, AllToAll, Barrier) are separate
// package-level functions and types that do not use a Ring.
type Ring struct {
	size int
}

// NewRing returns a coordinator for size peers.
func NewRing(size int) *Ring {
	return &Ring{size: size}
}

// Size returns the number of peers in the ring.
func (r *Ring) Size() int { return r.size }

// AllReduceInt combines one int per rank using reduce as the combining
// function (e.g. sum for the termination check), folding the values in
// rank order. The caller supplies every rank's value at once; nothing blocks.
func AllReduceInt(values []int, reduce func(a, b int) int) int {
	if len(values) == 0 {
		return 0
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = reduce(acc, v)
	}
	return acc
}

// AllToAll delivers perPeer[i] (a slice of envelopes rank i wants to send
// to each other rank) and returns, for each rank j, the concatenation of
// everything every rank sent it. perPeer[i][j] is what rank i sends to
// rank j. This models one synchronous exchange round: every goroutine
// produces its outbound batches, then every goroutine waits until all
// batches addressed to it have been collected, via a WaitGroup-guarded
// rendezvous rather than unbuffered channel sends (so senders never block
// on a receiver that has not yet reached the exchange point).
func AllToAll(perPeer [][][][]byte) [][][]byte {
	n := len(perPeer)
	inbound := make([][][]byte, n)

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(from int) {
			defer wg.Done()
			for to := 0; to < n; to++ {
				batch := perPeer[from][to]
				if len(batch) == 0 {
					continue
				}
				mu.Lock()
				inbound[to] = append(inbound[to], batch...)
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	return inbound
}

// Barrier blocks until all n participants have called Arrive, mirroring
// an MPI-style comm->barrier() used to serialize rank-ordered output
// writes at end of run.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int
}

// NewBarrier returns a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Arrive blocks the calling goroutine until all n participants have
// called Arrive for the current generation, then releases them together.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
}
