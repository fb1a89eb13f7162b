package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pool caches one session per distinct proxy value; the empty string ("no
// proxy") is its own key. Owned by the application context and passed by
// reference; there is no package-level instance.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	grace    time.Duration
}

func NewPool(timeout, grace time.Duration) *Pool {
	return &Pool{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		grace:    grace,
	}
}

// Acquire returns the cached session for the proxy, recreating it if the
// cached one has been closed. Never returns a closed session.
func (p *Pool) Acquire(proxy string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[proxy]; ok {
		if !s.Closed() {
			return s, nil
		}
		delete(p.sessions, proxy)
	}

	s, err := New(proxy, p.timeout, p.grace)
	if err != nil {
		return nil, err
	}
	p.sessions[proxy] = s
	return s, nil
}

// ReleaseAll closes every cached session. Idempotent.
func (p *Pool) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.sessions) == 0 {
		return
	}
	log.Info().Int("sessions", len(p.sessions)).Msg("closing cached sessions")
	for key, s := range p.sessions {
		s.Close()
		delete(p.sessions, key)
	}
}
