package hull

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// priceFunc expands one inner path into a trail. ok is false for an
// impossible trail.
type priceFunc func(inner Path) (t Trail, ok bool)

// tally is what one worker, or the whole pool, collected.
type tally struct {
	bins Bins
	best *Trail
}

func newTally() tally {
	return tally{bins: NewBins()}
}

// keep records t if it is more likely than the current best, ties going to
// the smaller inner path.
func (t *tally) keep(tr Trail) {
	if t.best == nil || tr.Exponent < t.best.Exponent ||
		tr.Exponent == t.best.Exponent && tr.Inner.Hex() < t.best.Inner.Hex() {
		c := tr
		t.best = &c
	}
}

func (t *tally) merge(o tally) {
	t.bins.Merge(o.bins)
	if o.best != nil {
		t.keep(*o.best)
	}
}

// evaluate prices the paths of work with numWorkers parallel workers
// (0 = one per CPU) until work is closed or ctx is cancelled. onPath is
// called once per path from the worker goroutines.
func evaluate(ctx context.Context, work <-chan Path, numWorkers int, price priceFunc, onPath func(skipped bool)) (tally, int64) {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		total  = newTally()
		priced int64
	)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := worker(ctx, work, price, &priced, onPath)
			mu.Lock()
			total.merge(local)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return total, atomic.LoadInt64(&priced)
}

// worker drains work into a local tally.
func worker(ctx context.Context, work <-chan Path, price priceFunc, priced *int64, onPath func(bool)) tally {
	local := newTally()
	for {
		select {
		case <-ctx.Done():
			return local
		case inner, ok := <-work:
			if !ok {
				return local
			}
			atomic.AddInt64(priced, 1)
			tr, ok := price(inner)
			if !ok {
				local.bins.Skip()
			} else {
				local.bins.Add(tr.Exponent)
				local.keep(tr)
			}
			if onPath != nil {
				onPath(!ok)
			}
		}
	}
}
