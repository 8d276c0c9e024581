package runtime

import (
	"chatterm/contract"
	"log/slog"
)

// Broadcaster delivers lines to a snapshot of the registry.
// Writes happen after the registry lock is released, so a stalled peer only
// delays the sender, never a join, rename or leave.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
	metrics  contract.Metrics
}

func NewBroadcaster(log *slog.Logger, registry *Registry, metrics contract.Metrics) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, metrics: metrics}
}

// Broadcast writes line to every registered session in join order and
// returns how many writes succeeded. A failing recipient is terminated and
// delivery carries on with the others.
func (b *Broadcaster) Broadcast(line string) int {
	delivered := 0
	for _, s := range b.registry.Members() {
		if err := b.SendTo(s, line); err != nil {
			continue
		}
		delivered++
	}
	return delivered
}

// SendTo writes line to a single session, terminating it on failure.
func (b *Broadcaster) SendTo(s *Session, line string) error {
	if err := s.Send(line); err != nil {
		if s.Terminate() {
			b.metrics.SendFailed()
			b.log.Warn("Send failed, terminating session",
				"session_id", s.ID,
				"name", s.Name(),
				"error", err)
		}
		return err
	}
	return nil
}

// SendLines writes lines in order and stops at the first failure.
func (b *Broadcaster) SendLines(s *Session, lines []string) error {
	for _, line := range lines {
		if err := b.SendTo(s, line); err != nil {
			return err
		}
	}
	return nil
}
