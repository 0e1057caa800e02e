// Package projlock serializes mutating work per project while letting
// distinct projects run concurrently. The lock is per-process; crash
// consistency across processes comes from the stores' atomic renames.
package projlock

import "sync"

// Locks is a process-wide map from project path to the tail of its pending
// work chain. Each With call appends itself as the new tail and waits for the
// previous tail to finish, so work within a project runs in submission order.
type Locks struct {
	mu    sync.Mutex
	tails map[string]*tail
}

type tail struct {
	done chan struct{}
}

// New returns an empty lock set.
func New() *Locks {
	return &Locks{tails: make(map[string]*tail)}
}

// With runs fn with the project's lock held. Errors from fn release the lock
// normally, so queued work still proceeds. When the chain drains, the
// project's entry is removed to keep memory bounded.
func (l *Locks) With(project string, fn func() error) error {
	l.mu.Lock()
	prev := l.tails[project]
	cur := &tail{done: make(chan struct{})}
	l.tails[project] = cur
	l.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	defer func() {
		close(cur.done)
		l.mu.Lock()
		// Only remove the entry if no later caller replaced us as tail.
		if l.tails[project] == cur {
			delete(l.tails, project)
		}
		l.mu.Unlock()
	}()

	return fn()
}

// Held reports whether any work is queued or running for the project.
// Diagnostic only; the answer can be stale by the time it returns.
func (l *Locks) Held(project string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tails[project]
	return ok
}
