package main

import "sync"

//////////////////////////////////////////////////////////////
// CONVERSATION SESSIONS
//////////////////////////////////////////////////////////////

// Roles as the LLM backend understands them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// SenderID is the user part of a sender's JID (a phone number or a hidden LID number).
type SenderID string

// Turn is one role-tagged entry of a transcript.
type Turn struct {
	Role string
	Text string
}

// Session is the conversation kept for one unknown sender. The embedded mutex
// is held for the whole of a reply so two turns never interleave; arrival
// order is kept by the router's per-sender queue.
type Session struct {
	sync.Mutex

	mu         sync.RWMutex
	transcript []Turn
}

// Transcript returns a copy of the turns recorded so far.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Append records turns at the end of the transcript.
func (s *Session) Append(turns ...Turn) {
	s.mu.Lock()
	s.transcript = append(s.transcript, turns...)
	s.mu.Unlock()
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transcript)
}

// SessionStore maps senders to their sessions. Sessions are never evicted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[SenderID]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[SenderID]*Session)}
}

// GetOrCreate returns the session for id, creating it from seed on first use.
// The second return value reports whether the session was created by this call.
func (st *SessionStore) GetOrCreate(id SenderID, seed []Turn) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s, false
	}
	s := &Session{transcript: append([]Turn(nil), seed...)}
	st.sessions[id] = s
	return s, true
}

func (st *SessionStore) Get(id SenderID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
