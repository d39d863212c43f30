package dispatch

import "sync"

type keyedLockEntry struct {
	mtx  sync.Mutex
	refs int
}

// Mutex per key. Entries are dropped once nobody holds or waits for them.
type keyedLock struct {
	mtx     sync.Mutex
	entries map[string]*keyedLockEntry
}

func newKeyedLock() *keyedLock {
	return &keyedLock{
		entries: make(map[string]*keyedLockEntry),
	}
}

func (self *keyedLock) Lock(key string) (unlock func()) {
	self.mtx.Lock()
	entry, ok := self.entries[key]
	if !ok {
		entry = new(keyedLockEntry)
		self.entries[key] = entry
	}
	entry.refs++
	self.mtx.Unlock()

	entry.mtx.Lock()

	return func() {
		entry.mtx.Unlock()

		self.mtx.Lock()
		defer self.mtx.Unlock()
		entry.refs--
		if entry.refs == 0 {
			delete(self.entries, key)
		}
	}
}

func (self *keyedLock) size() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return len(self.entries)
}
