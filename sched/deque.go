// deque.go - per-worker LIFO work deque with lock-free-feeling steal
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package sched

import "sync"

// StealOutcome is the result of one Steal attempt against a peer's
// deque.
type StealOutcome int

const (
	// StealEmpty means the deque had no work at the moment of the
	// attempt.
	StealEmpty StealOutcome = iota
	// StealRetry means the deque is momentarily contended (its owner
	// is itself popping or pushing) - try again rather than counting
	// it as evidence of "no work".
	StealRetry
	// StealSuccess means an item was taken.
	StealSuccess
)

// Deque is a single worker's work queue: push/pop (LIFO, from the same
// end) are only ever called by the owning worker; Steal is called by
// every other worker and removes from the opposite end so that a thief
// and the owner contend on opposite sides of the slice as much as
// possible.
//
// A plain mutex stands in for a lock-free Chase-Lev deque here: the
// owner uses Lock/Unlock (it always has to wait its turn), while Steal
// uses TryLock so that a momentarily-held lock is reported as
// StealRetry rather than blocking a thief that has other deques to try.
type Deque struct {
	mu    sync.Mutex
	items []RelativePath
}

// NewDeque returns an empty deque.
func NewDeque() *Deque {
	return &Deque{}
}

// Push adds an item to the owner's end of the deque. Only the owning
// worker may call this.
func (d *Deque) Push(p RelativePath) {
	d.mu.Lock()
	d.items = append(d.items, p)
	d.mu.Unlock()
}

// Pop removes and returns the most recently pushed item. Only the
// owning worker may call this.
func (d *Deque) Pop() (RelativePath, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.items)
	if n == 0 {
		return nil, false
	}

	p := d.items[n-1]
	d.items[n-1] = nil
	d.items = d.items[:n-1]
	return p, true
}

// Steal removes and returns the oldest item in the deque - the opposite
// end from Push/Pop - so that the owner keeps draining its most recent
// (usually deepest, most cache-local) work while thieves take the
// oldest, usually shallowest and therefore most likely to spawn further
// stealable work.
func (d *Deque) Steal() (RelativePath, StealOutcome) {
	if !d.mu.TryLock() {
		return nil, StealRetry
	}
	defer d.mu.Unlock()

	if len(d.items) == 0 {
		return nil, StealEmpty
	}

	p := d.items[0]
	d.items[0] = nil
	d.items = d.items[1:]
	return p, StealSuccess
}
