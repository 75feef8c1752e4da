package correction

import "sync"

// SessionGuard allows one completed correction run per session. The owner
// of the session decides when it ends and calls Reset.
type SessionGuard struct {
	mu   sync.Mutex
	used bool
}

func NewSessionGuard() *SessionGuard {
	return &SessionGuard{}
}

// Used reports whether a run already completed in this session.
func (g *SessionGuard) Used() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used
}

func (g *SessionGuard) mark() {
	g.mu.Lock()
	g.used = true
	g.mu.Unlock()
}

// Reset re-arms the guard for a new session.
func (g *SessionGuard) Reset() {
	g.mu.Lock()
	g.used = false
	g.mu.Unlock()
}
