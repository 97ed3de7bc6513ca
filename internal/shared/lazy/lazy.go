// Package lazy provides a single-assignment guard for process-wide clients.
package lazy

import "sync"

// Value holds a lazily constructed T. Concurrent callers of Get wait for an
// in-flight construction instead of starting their own. A failed construction
// is not remembered, so a later call tries again.
type Value[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	val   T
	set   bool
	inFly bool
}

// Get returns the stored value, constructing it with init on first use.
func (v *Value[T]) Get(init func() (T, error)) (T, bool, error) {
	v.mu.Lock()
	if v.cond == nil {
		v.cond = sync.NewCond(&v.mu)
	}
	for v.inFly && !v.set {
		v.cond.Wait()
	}
	if v.set {
		val := v.val
		v.mu.Unlock()
		return val, true, nil
	}
	v.inFly = true
	v.mu.Unlock()

	val, err := init()

	v.mu.Lock()
	if err == nil {
		v.val = val
		v.set = true
	}
	v.inFly = false
	v.cond.Broadcast()
	v.mu.Unlock()

	return val, false, err
}

// Reset drops the stored value so the next Get constructs a new one.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	var zero T
	v.val = zero
	v.set = false
	v.mu.Unlock()
}
