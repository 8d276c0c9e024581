package runtime

import (
	"chatterm/contract"
	"chatterm/domain/chat"
	"chatterm/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Lifecycle drives one session from handshake to termination.
type Lifecycle struct {
	log               *slog.Logger
	registry          *Registry
	broadcaster       *Broadcaster
	router            *CommandRouter
	metrics           contract.Metrics
	handshakeAttempts int
	handshakeTimeout  time.Duration
}

func NewLifecycle(log *slog.Logger, registry *Registry, broadcaster *Broadcaster, router *CommandRouter,
	metrics contract.Metrics, handshakeAttempts int, handshakeTimeout time.Duration) *Lifecycle {
	return &Lifecycle{
		log:               log,
		registry:          registry,
		broadcaster:       broadcaster,
		router:            router,
		metrics:           metrics,
		handshakeAttempts: max(handshakeAttempts, 1),
		handshakeTimeout:  handshakeTimeout,
	}
}

// Run blocks until the session is terminated. The returned error explains
// why it ended; it never concerns another session.
func (l *Lifecycle) Run(ctx context.Context, s *Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
		l.cleanup(ctx, s)
	}()

	name, err := l.handshake(s)
	if err != nil {
		return err
	}
	l.metrics.SessionJoined()
	l.log.Info(name+" connected", "session_id", s.ID, "addr", s.RemoteAddr())

	l.broadcaster.Broadcast(chat.JoinNotice(name))
	if err := l.broadcaster.SendTo(s, chat.Welcome()); err != nil {
		return err
	}

	for {
		line, err := s.ReadLine()
		if err != nil {
			return err
		}
		if !l.router.Route(s, line) {
			return nil
		}
	}
}

// handshake prompts for a name until a valid one is registered.
func (l *Lifecycle) handshake(s *Session) (string, error) {
	if l.handshakeTimeout > 0 {
		timer := time.AfterFunc(l.handshakeTimeout, func() {
			if s.terminateIfHandshaking() {
				l.log.Debug("Handshake timed out", "session_id", s.ID)
			}
		})
		defer timer.Stop()
	}

	for attempt := 1; ; attempt++ {
		if err := s.Send(chat.Prompt); err != nil {
			return "", err
		}
		line, err := s.ReadLine()
		if err != nil {
			return "", err
		}

		requested := strings.TrimSpace(line)
		if err := chat.ValidateName(requested); err != nil {
			if attempt >= l.handshakeAttempts {
				return "", fmt.Errorf("%w: %w", errors.ErrHandshakeFailed, err)
			}
			if err := s.Send(chat.InvalidName(err.Error())); err != nil {
				return "", err
			}
			continue
		}

		name, err := l.registry.Register(s, requested)
		if stderrors.Is(err, errors.ErrNameSpaceExhausted) {
			_ = s.Send(chat.NameAssignmentError)
			return "", fmt.Errorf("%w: %w", errors.ErrHandshakeFailed, err)
		}
		if err != nil {
			return "", err
		}
		if name != requested {
			l.metrics.NameConflict()
		}
		return name, nil
	}
}

// cleanup terminates the session and releases its registry entry.
// The left notice is only sent while the server is still running.
func (l *Lifecycle) cleanup(ctx context.Context, s *Session) {
	s.Terminate()
	if !l.registry.Remove(s) {
		return
	}
	l.metrics.SessionLeft()
	name := s.Name()
	l.log.Info(name+" disconnected", "session_id", s.ID)
	if ctx.Err() == nil {
		l.broadcaster.Broadcast(chat.LeftNotice(name))
	}
}
