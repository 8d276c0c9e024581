package runtime

import (
	"chatterm/domain/chat"
	"chatterm/errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_RequestedNameIsFree(t *testing.T) {
	req := require.New(t)

	// Given an empty registry
	registry := NewRegistry(8, 1000)
	s, _ := newTestSession(t)

	// When a session asks for a free name
	name, err := registry.Register(s, "bob")

	// Then it gets it verbatim and becomes active
	req.NoError(err)
	req.Equal("bob", name)
	req.Equal("bob", s.Name())
	req.Equal("bob", s.Requested())
	req.Equal(chat.Active, s.State())
	req.Equal(1, registry.Len())

	holder, ok := registry.Lookup("bob")
	req.True(ok)
	req.Same(s, holder)
}

func TestRegistry_Register_TakenNameGetsSuffix(t *testing.T) {
	req := require.New(t)

	// Given "bob" is already registered
	registry := NewRegistry(8, 1000)
	registry.suffix = fixedSuffix(482)
	first, _ := newTestSession(t)
	_, err := registry.Register(first, "bob")
	req.NoError(err)

	// When a second session asks for "bob"
	second, _ := newTestSession(t)
	name, err := registry.Register(second, "bob")

	// Then it is given a derived name and keeps track of what it asked for
	req.NoError(err)
	req.Equal("bob482", name)
	req.Equal("bob", second.Requested())
	req.ElementsMatch([]string{"bob", "bob482"}, registry.Names())
}

func TestRegistry_Register_RetriesUntilFree(t *testing.T) {
	req := require.New(t)

	// Given "bob" and "bob1" are taken and the suffix source yields 1 then 2
	registry := NewRegistry(8, 1000)
	for _, name := range []string{"bob", "bob1"} {
		s, _ := newTestSession(t)
		_, err := registry.Register(s, name)
		req.NoError(err)
	}
	suffixes := []int{1, 2}
	registry.suffix = func(int) int {
		n := suffixes[0]
		suffixes = suffixes[1:]
		return n
	}

	// When a third session asks for "bob"
	s, _ := newTestSession(t)
	name, err := registry.Register(s, "bob")

	// Then the second candidate is used
	req.NoError(err)
	req.Equal("bob2", name)
}

func TestRegistry_Register_NameSpaceExhausted(t *testing.T) {
	req := require.New(t)

	// Given every candidate the suffix source can produce is taken
	registry := NewRegistry(3, 1000)
	registry.suffix = fixedSuffix(7)
	for _, name := range []string{"bob", "bob7"} {
		s, _ := newTestSession(t)
		_, err := registry.Register(s, name)
		req.NoError(err)
	}

	// When another session asks for "bob"
	s, _ := newTestSession(t)
	_, err := registry.Register(s, "bob")

	// Then the reservation fails and nothing is added
	req.ErrorIs(err, errors.ErrNameSpaceExhausted)
	req.Equal(2, registry.Len())
	req.Equal(chat.Handshaking, s.State())
}

func TestRegistry_Register_TerminatedSessionIsRefused(t *testing.T) {
	req := require.New(t)

	// Given a session terminated while handshaking
	registry := NewRegistry(8, 1000)
	s, conn := newTestSession(t)
	req.True(s.Terminate())
	req.True(conn.isClosed())

	// When it tries to register
	_, err := registry.Register(s, "bob")

	// Then it is refused and its name stays free
	req.ErrorIs(err, errors.ErrSessionTerminated)
	req.Equal(0, registry.Len())
	_, ok := registry.Lookup("bob")
	req.False(ok)
}

func TestRegistry_Register_ClosedRegistryIsRefused(t *testing.T) {
	req := require.New(t)

	registry := NewRegistry(8, 1000)
	registry.Close()

	s, _ := newTestSession(t)
	_, err := registry.Register(s, "bob")

	req.ErrorIs(err, errors.ErrSessionTerminated)
	req.Equal(0, registry.Len())
}

func TestRegistry_Register_ConcurrentNamesStayUnique(t *testing.T) {
	req := require.New(t)

	// Given many sessions asking for the same name at once
	const sessions = 50
	registry := NewRegistry(64, 1000)
	var wg sync.WaitGroup
	names := make([]string, sessions)
	errs := make([]error, sessions)

	// When they all register concurrently
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _ := newTestSession(t)
			names[i], errs[i] = registry.Register(s, "bob")
		}()
	}
	wg.Wait()

	// Then every session holds a distinct name and the roster matches the names
	for _, err := range errs {
		req.NoError(err)
	}
	seen := make(map[string]struct{}, sessions)
	for _, name := range names {
		_, dup := seen[name]
		req.False(dup, "duplicate name %s", name)
		seen[name] = struct{}{}
	}
	req.Contains(seen, "bob")
	req.Equal(sessions, registry.Len())

	reserved := registry.Names()
	roster := make([]string, 0, sessions)
	for _, m := range registry.Snapshot() {
		roster = append(roster, m.Name)
	}
	sort.Strings(reserved)
	sort.Strings(roster)
	req.Equal(reserved, roster)
}

func TestRegistry_Rename(t *testing.T) {
	req := require.New(t)

	// Given "bob" and "bob482"
	registry := NewRegistry(8, 1000)
	registry.suffix = fixedSuffix(482)
	a, _ := newTestSession(t)
	b, _ := newTestSession(t)
	_, err := registry.Register(a, "bob")
	req.NoError(err)
	_, err = registry.Register(b, "bob")
	req.NoError(err)

	// When "bob" asks for a name held by someone else
	err = registry.Rename(a, "bob482")

	// Then nothing changes
	req.ErrorIs(err, errors.ErrNameTaken)
	req.Equal("bob", a.Name())
	holder, _ := registry.Lookup("bob482")
	req.Same(b, holder)

	// When it asks for its own name
	req.NoError(registry.Rename(a, "bob"))
	req.Equal("bob", a.Name())

	// When it asks for a free name
	req.NoError(registry.Rename(a, "alice"))

	// Then the old reservation is released
	req.Equal("alice", a.Name())
	_, ok := registry.Lookup("bob")
	req.False(ok)
	holder, ok = registry.Lookup("alice")
	req.True(ok)
	req.Same(a, holder)
	req.ElementsMatch([]string{"alice", "bob482"}, registry.Names())
}

func TestRegistry_Rename_UnknownSession(t *testing.T) {
	req := require.New(t)

	registry := NewRegistry(8, 1000)
	s, _ := newTestSession(t)

	req.ErrorIs(registry.Rename(s, "bob"), errors.ErrSessionTerminated)
	req.Empty(registry.Names())
}

func TestRegistry_Remove_IsIdempotent(t *testing.T) {
	req := require.New(t)

	// Given three registered sessions
	registry := NewRegistry(8, 1000)
	a, _ := newTestSession(t)
	b, _ := newTestSession(t)
	c, _ := newTestSession(t)
	for s, name := range map[*Session]string{a: "a", b: "b", c: "c"} {
		_, err := registry.Register(s, name)
		req.NoError(err)
	}

	// When the middle one is removed twice
	req.True(registry.Remove(b))
	req.False(registry.Remove(b))

	// Then its name is free again and the others are untouched
	req.Equal(2, registry.Len())
	_, ok := registry.Lookup("b")
	req.False(ok)
	req.ElementsMatch([]string{"a", "c"}, registry.Names())

	again, _ := newTestSession(t)
	name, err := registry.Register(again, "b")
	req.NoError(err)
	req.Equal("b", name)
}

func TestRegistry_Snapshot_KeepsJoinOrder(t *testing.T) {
	req := require.New(t)

	registry := NewRegistry(8, 1000)
	for _, name := range []string{"carol", "alice", "bob"} {
		s, _ := newTestSession(t)
		_, err := registry.Register(s, name)
		req.NoError(err)
	}

	members := registry.Snapshot()
	req.Len(members, 3)
	req.Equal("carol", members[0].Name)
	req.Equal("alice", members[1].Name)
	req.Equal("bob", members[2].Name)
	for _, m := range members {
		req.True(m.Alive)
		req.Zero(m.Ping)
		req.Equal(chat.ColorTag(33), m.ColorTag)
	}
}

func TestRegistry_Close_TerminatesEverySession(t *testing.T) {
	req := require.New(t)

	// Given two registered sessions
	registry := NewRegistry(8, 1000)
	a, connA := newTestSession(t)
	b, connB := newTestSession(t)
	_, err := registry.Register(a, "a")
	req.NoError(err)
	_, err = registry.Register(b, "b")
	req.NoError(err)

	// When the registry closes
	registry.Close()

	// Then both are terminated and their transports closed
	req.Equal(chat.Terminated, a.State())
	req.Equal(chat.Terminated, b.State())
	req.True(connA.isClosed())
	req.True(connB.isClosed())
}
