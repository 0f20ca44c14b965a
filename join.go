package subapp

import "sync"

// Join accumulates completion signals from a fixed number of units and fires
// exactly once, when the number of distinct completed keys reaches the
// expected count. Completions may arrive in any order and from any goroutine.
type Join struct {
	mu        sync.Mutex
	expected  int
	completed map[string]struct{}
	fired     bool
	onDone    func()
}

// NewJoin creates a join expecting the given number of completions. A
// negative count is treated as zero. With nothing to wait for the join is
// done on return and onDone has already run on the caller's goroutine.
func NewJoin(expected int, onDone func()) *Join {
	if expected < 0 {
		expected = 0
	}
	j := &Join{
		expected:  expected,
		completed: make(map[string]struct{}, expected),
		onDone:    onDone,
	}
	if expected == 0 {
		j.fired = true
		if onDone != nil {
			onDone()
		}
	}
	return j
}

// Complete marks key as done. Repeated keys are counted once. It returns
// true only for the call that made the join fire; onDone runs on that call's
// goroutine after the join's lock is released.
func (j *Join) Complete(key string) bool {
	j.mu.Lock()
	if j.fired {
		j.mu.Unlock()
		return false
	}
	j.completed[key] = struct{}{}
	if len(j.completed) < j.expected {
		j.mu.Unlock()
		return false
	}
	j.fired = true
	onDone := j.onDone
	j.mu.Unlock()

	if onDone != nil {
		onDone()
	}
	return true
}

// Done reports whether the join has fired.
func (j *Join) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fired
}

// Expected returns the count fixed at construction.
func (j *Join) Expected() int {
	return j.expected
}

// Completed returns the number of distinct keys seen so far.
func (j *Join) Completed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.completed)
}
