package sorting

import "sync"

// SessionRegistry records which member is sorting each match.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]string
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]string)}
}

// TryAcquire registers initiator for matchID unless a sort is already in
// flight, in which case it returns the existing holder and false.
func (r *SessionRegistry) TryAcquire(matchID, initiator string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, exists := r.sessions[matchID]; exists {
		return holder, false
	}
	r.sessions[matchID] = initiator
	return initiator, true
}

func (r *SessionRegistry) Release(matchID string) {
	r.mu.Lock()
	delete(r.sessions, matchID)
	r.mu.Unlock()
}

func (r *SessionRegistry) Holder(matchID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	holder, exists := r.sessions[matchID]
	return holder, exists
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
