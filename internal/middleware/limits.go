package middleware

import "sync"

// ConnLimiter caps the number of simultaneously open client connections.
// Both the TCP listener and the websocket route acquire a slot before
// serving a connection.
type ConnLimiter struct {
	mu     sync.Mutex
	active int
	max    int
}

func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: max}
}

// Acquire claims a connection slot, reporting false when the server is at
// its configured ceiling.
func (l *ConnLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active >= l.max {
		return false
	}
	l.active++
	return true
}

// Release frees a previously acquired slot.
func (l *ConnLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

// Active reports the current number of open connections.
func (l *ConnLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
