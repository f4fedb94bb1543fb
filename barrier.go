package radixscan

import "sync"

// Barrier is a reusable full-group rendezvous. Every participating lane
// must call Wait before any of them proceeds, and all memory writes issued
// before Wait are visible to every lane after it returns.
//
// Lanes that finish early call Leave so the remaining lanes can still meet.
// A failed lane calls Break, which releases all current and future waiters
// with ErrBarrierBroken.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	arrived int
	gen     uint64
	broken  bool
}

// NewBarrier creates a barrier for the given number of lanes.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until every participating lane has reached the barrier.
func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return ErrBarrierBroken
	}

	gen := b.gen
	b.arrived++
	if b.arrived >= b.parties {
		b.release()
		return nil
	}

	for gen == b.gen && !b.broken {
		b.cond.Wait()
	}
	if gen == b.gen {
		return ErrBarrierBroken
	}
	return nil
}

// Leave removes the calling lane from the group. If every remaining lane is
// already waiting, they are released.
func (b *Barrier) Leave() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.parties--
	if b.parties > 0 && b.arrived >= b.parties {
		b.release()
	}
}

// Break marks the barrier as failed and wakes every waiter.
func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.broken = true
	b.cond.Broadcast()
}

// Generation returns how many times the barrier has released its lanes.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// release must be called with mu held
func (b *Barrier) release() {
	b.arrived = 0
	b.gen++
	b.cond.Broadcast()
}
