package runtime

import (
	"chatterm/domain/chat"
	"chatterm/errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
)

// fakeConn is an in-memory LineConn recording every written line.
type fakeConn struct {
	mu         sync.Mutex
	written    []string
	failWrites bool
	inbound    chan string
	closed     chan struct{}
	closeOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan string, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadLine() (string, error) {
	select {
	case <-c.closed:
		return "", fmt.Errorf("%w: read: %w", errors.ErrTransport, io.EOF)
	default:
	}
	select {
	case line := <-c.inbound:
		return line, nil
	case <-c.closed:
		return "", fmt.Errorf("%w: read: %w", errors.ErrTransport, io.EOF)
	}
}

func (c *fakeConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites || c.isClosed() {
		return fmt.Errorf("%w: write: %w", errors.ErrTransport, io.ErrClosedPipe)
	}
	c.written = append(c.written, line)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "fake" }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.written)
}

func (c *fakeConn) failing() {
	c.mu.Lock()
	c.failWrites = true
	c.mu.Unlock()
}

func newTestSession(t *testing.T) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	return NewSession(conn, chat.ColorTag(33)), conn
}

// fixedSuffix makes derived names predictable.
func fixedSuffix(n int) func(int) int {
	return func(int) int { return n }
}
