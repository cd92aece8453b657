// worker.go - the work-stealing scheduler and its termination protocol
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

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Process is invoked by a worker for each popped or stolen work item. It
// may push zero or more further items onto w's own deque via
// WorkerHandle.Push before returning. A returned error aborts that
// worker; other workers run to completion naturally (they drain what
// remains in their own and peers' deques) and Scheduler.Run returns that
// error once they have all terminated (joined with any other worker's
// error).
type Process func(w *WorkerHandle, p RelativePath) error

// WorkerHandle is what a running worker (and the Process callback it
// invokes) sees of the scheduler: its own deque to push new work onto,
// and its identity for diagnostics.
type WorkerHandle struct {
	ID int

	sched *Scheduler
	own   *Deque
}

// Push adds a work item to this worker's own deque. It is the only
// legal way for a Process callback to introduce new work - a worker may
// push only onto the deque it itself owns (see spec.md section 4.5).
func (w *WorkerHandle) Push(p RelativePath) {
	w.own.Push(p)
}

// Scheduler coordinates N workers, each with its own LIFO Deque, against
// a single shared non_idle counter. This is the only synchronization
// primitive shared across workers beyond the deques themselves - see
// spec.md section 9, "Shared-state reduction".
type Scheduler struct {
	deques  []*Deque
	nonIdle atomic.Int64
	n       int
}

// New creates a Scheduler with n workers, each owning an empty deque.
func New(n int) *Scheduler {
	if n <= 0 {
		n = 1
	}
	s := &Scheduler{
		deques: make([]*Deque, n),
		n:      n,
	}
	for i := range s.deques {
		s.deques[i] = NewDeque()
	}
	s.nonIdle.Store(int64(n))
	return s
}

// Seed pushes the initial work item (typically the root relative path)
// onto worker 0's deque. Call this once, before Run.
func (s *Scheduler) Seed(p RelativePath) {
	s.deques[0].Push(p)
}

// Run starts all N workers and blocks until every worker has terminated.
// A worker terminates when its Process returns an error, or when a round
// finds every deque empty while non_idle is zero. It returns nil if no
// worker failed, the error as-is if exactly one did, and errors.Join of
// every worker's error if more than one did.
func (s *Scheduler) Run(process Process) error {
	var wg sync.WaitGroup
	errs := make(chan error, s.n)

	wg.Add(s.n)
	for i := 0; i < s.n; i++ {
		go func(id int) {
			defer wg.Done()
			h := &WorkerHandle{ID: id, sched: s, own: s.deques[id]}
			if err := s.runWorker(h, process); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	var all []error
	for e := range errs {
		all = append(all, e)
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return errors.Join(all...)
	}
}

// runWorker implements the loop from spec.md section 4.5:
//
//  1. Pop from own deque; if nonempty, process and loop.
//  2. Otherwise become idle: decrement non_idle *before* scanning for
//     steals, so that a peer which is mid-push cannot be missed by a
//     steal round that started before the push and is observed by this
//     worker's empty-check after.
//  3. Steal round: try every peer once; success wins, else any "retry"
//     makes the round a retry, else the round is empty.
//  4. On success: increment non_idle, process, go back to 1.
//  5. On empty round with non_idle == 0: terminate.
func (s *Scheduler) runWorker(h *WorkerHandle, process Process) error {
	var retryB, emptyB backoff

	for {
		if p, ok := h.own.Pop(); ok {
			if err := process(h, p); err != nil {
				// leave the pool for good so peers can still reach
				// non_idle == 0 once the remaining work is drained.
				s.nonIdle.Add(-1)
				return err
			}
			continue
		}

		// own deque empty: transition to idle before scanning.
		s.nonIdle.Add(-1)

		item, ok, done := s.stealUntilDecided(h, &retryB, &emptyB)
		if done {
			return nil
		}
		if !ok {
			// shouldn't happen: stealUntilDecided only returns
			// without 'done' when it found an item.
			continue
		}

		s.nonIdle.Add(1)
		retryB.reset()
		emptyB.reset()
		if err := process(h, item); err != nil {
			s.nonIdle.Add(-1)
			return err
		}
	}
}

// stealUntilDecided repeatedly runs one steal round (one pass over every
// peer deque) until it either finds an item or reaches global
// termination. It returns (item, true, false) on success and
// (nil, false, true) on termination.
func (s *Scheduler) stealUntilDecided(h *WorkerHandle, retryB, emptyB *backoff) (RelativePath, bool, bool) {
	for {
		item, outcome := s.stealRound(h.ID)
		switch outcome {
		case StealSuccess:
			return item, true, false
		case StealRetry:
			retryB.snooze()
		case StealEmpty:
			if s.nonIdle.Load() == 0 {
				return nil, false, true
			}
			emptyB.snooze()
		}
	}
}

// stealRound tries every peer deque once and reduces the outcomes: any
// success wins immediately; otherwise a single retry makes the whole
// round a retry; otherwise the round is empty.
func (s *Scheduler) stealRound(self int) (RelativePath, StealOutcome) {
	sawRetry := false
	for i, d := range s.deques {
		if i == self {
			continue
		}
		p, outcome := d.Steal()
		switch outcome {
		case StealSuccess:
			return p, StealSuccess
		case StealRetry:
			sawRetry = true
		}
	}
	if sawRetry {
		return nil, StealRetry
	}
	return nil, StealEmpty
}
