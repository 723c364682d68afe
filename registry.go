package exitz

import (
	"time"

	"github.com/google/uuid"
)

// syncEntry is a registered synchronous hook.
type syncEntry struct {
	id       string
	callback SyncFunc
}

// asyncEntry pairs an asynchronous hook with its wait budget. Identity is
// the entry id, so one function registered twice yields two entries that
// are removed independently.
type asyncEntry struct {
	id       string
	callback AsyncFunc
	wait     time.Duration
}

// registry holds the hooks in registration order. It is not safe for
// concurrent use; the Coordinator guards it with its mutex.
type registry struct {
	syncHooks  []syncEntry
	asyncHooks []asyncEntry
}

func (r *registry) addSync(callback SyncFunc) string {
	id := uuid.NewString()
	r.syncHooks = append(r.syncHooks, syncEntry{id: id, callback: callback})
	return id
}

func (r *registry) addAsync(callback AsyncFunc, wait time.Duration) string {
	id := uuid.NewString()
	r.asyncHooks = append(r.asyncHooks, asyncEntry{id: id, callback: callback, wait: wait})
	return id
}

// removeSync deletes the entry with the given id. Missing ids are ignored.
func (r *registry) removeSync(id string) bool {
	for i, entry := range r.syncHooks {
		if entry.id == id {
			r.syncHooks = append(r.syncHooks[:i:i], r.syncHooks[i+1:]...)
			return true
		}
	}
	return false
}

// removeAsync deletes the entry with the given id. Missing ids are ignored.
func (r *registry) removeAsync(id string) bool {
	for i, entry := range r.asyncHooks {
		if entry.id == id {
			r.asyncHooks = append(r.asyncHooks[:i:i], r.asyncHooks[i+1:]...)
			return true
		}
	}
	return false
}

// snapshotSync copies the synchronous hooks so they can be run without
// holding the lock.
func (r *registry) snapshotSync() []syncEntry {
	hooks := make([]syncEntry, len(r.syncHooks))
	copy(hooks, r.syncHooks)
	return hooks
}

func (r *registry) snapshotAsync() []asyncEntry {
	hooks := make([]asyncEntry, len(r.asyncHooks))
	copy(hooks, r.asyncHooks)
	return hooks
}

// hasSync reports whether the synchronous hook is still registered.
func (r *registry) hasSync(id string) bool {
	for _, entry := range r.syncHooks {
		if entry.id == id {
			return true
		}
	}
	return false
}
