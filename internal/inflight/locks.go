package inflight

import (
	"sync"

	"github.com/maheshrc27/agency-planner/internal/apperr"
)

type Flag string

const (
	Moving     Flag = "moving"
	Scheduling Flag = "scheduling"
	Deleting   Flag = "deleting"
	Editing    Flag = "editing"
)

// Locks marks posts that have an operation pending against a collaborator.
// It is a cooperative lock: it refuses re-entrant intents for the same post
// and nothing more.
type Locks struct {
	mu   sync.Mutex
	held map[string]Flag
}

func NewLocks() *Locks {
	return &Locks{held: make(map[string]Flag)}
}

// Acquire flags id and returns the function that clears it. Callers defer
// the release so every exit path clears the flag.
func (l *Locks) Acquire(id string, flag Flag) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, busy := l.held[id]; busy {
		return nil, apperr.Conflict("post %s is busy (%s)", id, current)
	}
	l.held[id] = flag

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}

func (l *Locks) Flag(id string) (Flag, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.held[id]
	return f, ok
}

func (l *Locks) Busy(id string) bool {
	_, ok := l.Flag(id)
	return ok
}

// Snapshot returns the currently held flags, used to render items as
// non-draggable.
func (l *Locks) Snapshot() map[string]Flag {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Flag, len(l.held))
	for id, f := range l.held {
		out[id] = f
	}
	return out
}
