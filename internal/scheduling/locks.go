package scheduling

import (
	"sync"

	"github.com/google/uuid"
)

// lockArena hands out one mutex per reminder ID so expansion and
// reconciliation for different reminders run concurrently while writes to the
// same reminder serialize. Entries are refcounted and released when the last
// holder unlocks, so the arena does not grow with the number of reminders
// ever touched.
type lockArena struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*arenaEntry
}

type arenaEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[uuid.UUID]*arenaEntry)}
}

// lock acquires the mutex for id and returns its unlock function.
func (a *lockArena) lock(id uuid.UUID) func() {
	a.mu.Lock()
	entry, ok := a.locks[id]
	if !ok {
		entry = &arenaEntry{}
		a.locks[id] = entry
	}
	entry.refs++
	a.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		a.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(a.locks, id)
		}
		a.mu.Unlock()
	}
}
