package runtime

import (
	"chatterm/contract"
	"chatterm/domain/chat"
	"sync"

	"github.com/google/uuid"
)

// Session is the server-side state of one connected peer.
// Its lifecycle goroutine owns it; the Registry only references it.
// name and requested are written by the Registry while it holds its own lock.
type Session struct {
	ID       uuid.UUID
	conn     contract.LineConn
	colorTag string

	mu        sync.RWMutex
	name      string
	requested string
	state     chat.State
	closeOnce sync.Once
}

func NewSession(conn contract.LineConn, colorTag string) *Session {
	return &Session{
		ID:       uuid.New(),
		conn:     conn,
		colorTag: colorTag,
		state:    chat.Handshaking,
	}
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Requested is the name asked for during the handshake, before any suffix.
func (s *Session) Requested() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requested
}

func (s *Session) State() chat.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) ColorTag() string { return s.colorTag }

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

// Ping is a placeholder, no round trip is measured.
func (s *Session) Ping() int64 { return 0 }

// Send writes one line to the peer. A failure leaves the caller to decide
// on termination.
func (s *Session) Send(line string) error {
	return s.conn.WriteLine(line)
}

func (s *Session) ReadLine() (string, error) {
	return s.conn.ReadLine()
}

// activate moves a handshaking session to Active under the given name.
// It fails when the session was terminated meanwhile.
func (s *Session) activate(name, requested string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransition(chat.Active) {
		return false
	}
	s.state = chat.Active
	s.name = name
	s.requested = requested
	return true
}

func (s *Session) rename(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Terminate drives the session to Terminated and closes its transport,
// which unblocks a pending read. Only the first call has an effect.
func (s *Session) Terminate() bool {
	s.mu.Lock()
	if s.state == chat.Terminated {
		s.mu.Unlock()
		return false
	}
	s.state = chat.Terminated
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
	return true
}

// terminateIfHandshaking terminates the session only when it has not been
// activated yet. The check and the transition happen under one lock.
func (s *Session) terminateIfHandshaking() bool {
	s.mu.Lock()
	if s.state != chat.Handshaking {
		s.mu.Unlock()
		return false
	}
	s.state = chat.Terminated
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
	return true
}

func (s *Session) member() chat.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.Member{
		ID:       s.ID.String(),
		Name:     s.name,
		ColorTag: s.colorTag,
		Ping:     s.Ping(),
		Alive:    s.state == chat.Active,
	}
}
