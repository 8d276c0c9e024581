package runtime

import (
	"chatterm/domain/chat"
	"chatterm/errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
)

// Registry holds the live sessions in join order and the names they reserve.
// Both structures only change together under mu, so a reserved name always
// belongs to exactly one registered session.
type Registry struct {
	mu              sync.RWMutex
	sessions        []*Session
	names           map[string]*Session
	closed          bool
	maxNameAttempts int
	suffixRange     int
	suffix          func(n int) int
}

func NewRegistry(maxNameAttempts, suffixRange int) *Registry {
	return &Registry{
		names:           make(map[string]*Session),
		maxNameAttempts: max(maxNameAttempts, 1),
		suffixRange:     max(suffixRange, 1),
		suffix:          rand.IntN,
	}
}

// Register reserves a display name for the session and adds it to the
// iteration list in one step, moving it to Active.
// A taken name gets a random numeric suffix until a free one is found; after
// maxNameAttempts derived candidates the handshake fails with ErrNameSpaceExhausted.
func (r *Registry) Register(s *Session, requested string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", errors.ErrSessionTerminated
	}
	name, err := r.reserveName(requested)
	if err != nil {
		return "", err
	}
	if !s.activate(name, requested) {
		return "", errors.ErrSessionTerminated
	}
	r.names[name] = s
	r.sessions = append(r.sessions, s)
	return name, nil
}

// reserveName must be called with mu held.
func (r *Registry) reserveName(requested string) (string, error) {
	candidate := requested
	for attempt := 0; ; attempt++ {
		if _, taken := r.names[candidate]; !taken {
			return candidate, nil
		}
		if attempt == r.maxNameAttempts {
			return "", fmt.Errorf("%w: %q after %d attempts", errors.ErrNameSpaceExhausted, requested, attempt)
		}
		candidate = requested + strconv.Itoa(r.suffix(r.suffixRange))
	}
}

// Rename swaps the session's reservation to newName. When newName is held by
// another session nothing changes and ErrNameTaken is returned.
func (r *Registry) Rename(s *Session, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.sessions, s) {
		return errors.ErrSessionTerminated
	}
	if holder, taken := r.names[newName]; taken {
		if holder == s {
			return nil
		}
		return fmt.Errorf("%w: %q", errors.ErrNameTaken, newName)
	}
	delete(r.names, s.Name())
	r.names[newName] = s
	s.rename(newName)
	return nil
}

// Remove drops the session and releases its name.
// It reports whether the session was present, so racing cleanups are harmless.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.Index(r.sessions, s)
	if idx < 0 {
		return false
	}
	r.sessions = slices.Delete(r.sessions, idx, idx+1)
	if name := s.Name(); r.names[name] == s {
		delete(r.names, name)
	}
	return true
}

// Snapshot copies the roster metadata in join order.
func (r *Registry) Snapshot() []chat.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]chat.Member, 0, len(r.sessions))
	for _, s := range r.sessions {
		members = append(members, s.member())
	}
	return members
}

// Members copies the session references so callers can write to them
// without holding the lock.
func (r *Registry) Members() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

func (r *Registry) Lookup(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.names[name]
	return s, ok
}

// Names returns the reserved names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close refuses further registrations and terminates every live session.
// Their lifecycles remove them once their reads unblock.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := slices.Clone(r.sessions)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Terminate()
	}
}
