package runtime

import (
	"chatterm/contract"
	"chatterm/domain/chat"
	"chatterm/errors"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

var _ contract.Worker = (*Listener)(nil)

// Listener accepts connections and runs one Lifecycle goroutine per peer.
type Listener struct {
	log             *slog.Logger
	address         string
	lifecycle       *Lifecycle
	registry        *Registry
	maxLineLength   int
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	mu        sync.Mutex
	open      map[*Session]struct{}
	wg        sync.WaitGroup
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

func NewListener(log *slog.Logger, address string, lifecycle *Lifecycle, registry *Registry,
	maxLineLength int, writeTimeout, shutdownTimeout time.Duration) *Listener {
	return &Listener{
		log:             log,
		address:         address,
		lifecycle:       lifecycle,
		registry:        registry,
		maxLineLength:   maxLineLength,
		writeTimeout:    writeTimeout,
		shutdownTimeout: shutdownTimeout,
		open:            make(map[*Session]struct{}),
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the endpoint is bound.
func (l *Listener) Ready() <-chan struct{} { return l.ready }

// Addr is the bound address, valid after Ready.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

// Run binds the endpoint and accepts until ctx is canceled, then terminates
// every session, handshaking ones included. Accept failures outside shutdown
// are returned wrapped in errors.ErrListener.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.address)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %w", errors.ErrListener, l.address, err)
	}
	l.mu.Lock()
	l.addr = ln.Addr()
	l.mu.Unlock()
	l.readyOnce.Do(func() { close(l.ready) })
	l.log.Info("Listening", "address", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			_ = ln.Close()
			l.shutdown()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: accept: %w", errors.ErrListener, err)
		}
		l.serve(ctx, conn)
	}
}

func (l *Listener) serve(ctx context.Context, conn net.Conn) {
	s := NewSession(NewLineConn(conn, l.maxLineLength, l.writeTimeout), chat.RandomColorTag())
	l.mu.Lock()
	l.open[s] = struct{}{}
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.open, s)
			l.mu.Unlock()
		}()
		if err := l.lifecycle.Run(ctx, s); err != nil {
			l.log.Debug("Session ended", "session_id", s.ID, "addr", s.RemoteAddr(), "error", err)
		}
	}()
}

// shutdown closes the registry, terminates every tracked session and waits
// for their goroutines up to shutdownTimeout.
func (l *Listener) shutdown() {
	l.registry.Close()

	l.mu.Lock()
	sessions := make([]*Session, 0, len(l.open))
	for s := range l.open {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		s.Terminate()
	}
	l.log.Info(fmt.Sprintf("Closed %d client connections", len(sessions)))

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(l.shutdownTimeout):
		l.log.Warn("Shutdown timeout reached, some sessions may still be running")
	}
}
