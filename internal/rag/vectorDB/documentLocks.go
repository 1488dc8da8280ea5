package vectorDB

import "sync"

// DocumentLocks serialises writers of the same document id inside one process.
// An id's entry lives only while some writer holds or waits on it.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	sync.Mutex
	holders int
}

// Lock blocks until no other writer holds id and returns the release func.
func (d *DocumentLocks) Lock(id string) func() {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[string]*documentLock)
	}
	lock, ok := d.locks[id]
	if !ok {
		lock = &documentLock{}
		d.locks[id] = lock
	}
	lock.holders++
	d.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		d.mu.Lock()
		lock.holders--
		if lock.holders == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}

// Len reports how many ids currently have a writer.
func (d *DocumentLocks) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
