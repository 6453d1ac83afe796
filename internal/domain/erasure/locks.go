package erasure

import "sync"

// requestLocks serializes engine operations on the same request id within
// one process. Entries are dropped once nobody holds or waits for them.
type requestLocks struct {
	mu   sync.Mutex
	held map[int64]*requestLock
}

type requestLock struct {
	sync.Mutex
	refs int
}

func (l *requestLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*requestLock)
	}
	rl, ok := l.held[id]
	if !ok {
		rl = &requestLock{}
		l.held[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
