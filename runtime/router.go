package runtime

import (
	"chatterm/contract"
	"chatterm/domain/chat"
	"chatterm/errors"
	stderrors "errors"
	"log/slog"
	"time"
)

// CommandRouter turns one inbound line into a registry change or a delivery.
type CommandRouter struct {
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	censor      contract.Censor
	metrics     contract.Metrics
	timestamps  bool
	now         func() time.Time
}

func NewCommandRouter(log *slog.Logger, registry *Registry, broadcaster *Broadcaster,
	censor contract.Censor, metrics contract.Metrics, timestamps bool) *CommandRouter {
	return &CommandRouter{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		censor:      censor,
		metrics:     metrics,
		timestamps:  timestamps,
		now:         time.Now,
	}
}

// Route handles a line sent by s. It returns false once the session must
// stop reading, either on /leave or when its own transport failed.
func (r *CommandRouter) Route(s *Session, line string) bool {
	cmd := chat.ParseCommand(line)
	switch cmd.Kind {
	case chat.Leave:
		r.log.Debug("Leave requested", "session_id", s.ID, "name", s.Name())
		return false
	case chat.Nickname:
		return r.nickname(s, cmd.Arg) == nil
	case chat.Help:
		return r.broadcaster.SendLines(s, chat.HelpLines()) == nil
	case chat.List:
		return r.broadcaster.SendLines(s, chat.ListLines(r.registry.Snapshot())) == nil
	default:
		r.message(s, cmd.Arg)
		return s.State() == chat.Active
	}
}

func (r *CommandRouter) nickname(s *Session, newName string) error {
	if newName == "" {
		return r.broadcaster.SendTo(s, chat.NoNicknameProvided)
	}
	if err := chat.ValidateName(newName); err != nil {
		return r.broadcaster.SendTo(s, chat.InvalidName(err.Error()))
	}

	oldName := s.Name()
	err := r.registry.Rename(s, newName)
	switch {
	case err == nil:
		r.log.Info(oldName+" changed their nickname to "+newName, "session_id", s.ID)
		return r.broadcaster.SendTo(s, chat.RenameSucceeded(newName))
	case stderrors.Is(err, errors.ErrNameTaken):
		r.metrics.NameConflict()
		return r.broadcaster.SendTo(s, r.conflictReply(s, newName))
	default:
		return err
	}
}

// conflictReply points a session still holding the name it asked for at
// handshake to /nickname; a session already renamed gets the plain refusal.
func (r *CommandRouter) conflictReply(s *Session, newName string) string {
	requested := s.Requested()
	if s.Name() == requested {
		return chat.AutoAssignedNameTaken(requested)
	}
	return chat.RequestedNameTaken(newName)
}

func (r *CommandRouter) message(s *Session, content string) {
	if r.censor != nil {
		content = r.censor.Censor(content)
	}
	var at *time.Time
	if r.timestamps {
		now := r.now()
		at = &now
	}
	r.broadcaster.Broadcast(chat.ChatLine(s.ColorTag(), s.Name(), content, at))
	r.metrics.MessageBroadcast()
}
