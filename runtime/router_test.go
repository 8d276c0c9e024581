package runtime

import (
	"chatterm/domain/chat"
	"chatterm/mocks"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type routerFixture struct {
	registry *Registry
	router   *CommandRouter
	metrics  *mocks.MockMetrics
	bob      *Session
	bobConn  *fakeConn
	bob2     *Session
	bob2Conn *fakeConn
}

// newRouterFixture registers "bob" and a second "bob" that ends up as "bob482".
func newRouterFixture(t *testing.T, censor *mocks.MockCensor) routerFixture {
	t.Helper()
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	f := routerFixture{registry: NewRegistry(8, 1000), metrics: mocks.NewMockMetrics(ctrl)}
	f.registry.suffix = fixedSuffix(482)
	broadcaster := NewBroadcaster(log, f.registry, f.metrics)
	if censor != nil {
		f.router = NewCommandRouter(log, f.registry, broadcaster, censor, f.metrics, false)
	} else {
		f.router = NewCommandRouter(log, f.registry, broadcaster, nil, f.metrics, false)
	}

	f.bob, f.bobConn = newTestSession(t)
	f.bob2, f.bob2Conn = newTestSession(t)
	name, err := f.registry.Register(f.bob, "bob")
	req.NoError(err)
	req.Equal("bob", name)
	name, err = f.registry.Register(f.bob2, "bob")
	req.NoError(err)
	req.Equal("bob482", name)
	return f
}

func TestCommandRouter_Message_IsBroadcastToEveryone(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().MessageBroadcast().Times(1)

	// When bob says hello
	req.True(f.router.Route(f.bob, "hello"))

	// Then both sessions get the rendered chat line, sender included
	expected := chat.ColorTag(33) + "bob" + chat.Reset + ": hello"
	req.Equal([]string{expected}, f.bobConn.lines())
	req.Equal([]string{expected}, f.bob2Conn.lines())
}

func TestCommandRouter_UnknownSlashInputIsChat(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().MessageBroadcast().Times(1)

	req.True(f.router.Route(f.bob, "/dance now"))

	req.Len(f.bob2Conn.lines(), 1)
	req.True(strings.HasSuffix(f.bob2Conn.lines()[0], ": /dance now"))
}

func TestCommandRouter_Message_IsCensored(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	censor := mocks.NewMockCensor(ctrl)
	censor.EXPECT().Censor("you snake").Return("you *****")
	f := newRouterFixture(t, censor)
	f.metrics.EXPECT().MessageBroadcast().Times(1)

	req.True(f.router.Route(f.bob, "you snake"))

	req.True(strings.HasSuffix(f.bob2Conn.lines()[0], ": you *****"))
}

func TestCommandRouter_Message_WithTimestamp(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().MessageBroadcast().Times(1)
	f.router.timestamps = true
	f.router.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 34, 0, 0, time.UTC)
	}

	req.True(f.router.Route(f.bob, "hello"))

	line := f.bob2Conn.lines()[0]
	req.True(strings.HasPrefix(line, "> "))
	req.Contains(line, "12:34")
	req.True(strings.HasSuffix(line, "bob"+chat.Reset+": hello"))
}

func TestCommandRouter_List_OnlyRepliesToRequester(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)

	// When bob asks for the roster
	req.True(f.router.Route(f.bob, "/list"))

	// Then only bob receives one line per member in join order
	req.Equal([]string{
		"(0) | " + chat.ColorTag(33) + "bob" + chat.Reset,
		"(0) | " + chat.ColorTag(33) + "bob482" + chat.Reset,
	}, f.bobConn.lines())
	req.Empty(f.bob2Conn.lines())
}

func TestCommandRouter_Nickname_RenamedSessionGetsPlainRefusal(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().NameConflict().Times(1)

	// Given bob renamed itself, so it no longer holds its handshake name
	req.True(f.router.Route(f.bob, "/nickname alice"))

	// When it asks for a taken name
	req.True(f.router.Route(f.bob, "/nickname bob482"))

	// Then the reply names the refused nickname without the /nickname hint
	req.Equal([]string{
		chat.RenameSucceeded("alice"),
		chat.RequestedNameTaken("bob482"),
	}, f.bobConn.lines())
	req.Equal("alice", f.bob.Name())
}

func TestCommandRouter_List_SkipsTerminatedSessions(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().MessageBroadcast().Times(1)
	f.metrics.EXPECT().SendFailed().Times(1)

	// Given bob482's transport fails during a broadcast
	f.bob2Conn.failing()
	req.True(f.router.Route(f.bob, "hi"))
	req.Equal(chat.Terminated, f.bob2.State())
	req.Equal(2, f.registry.Len())

	// When bob asks for the roster before bob482 is removed
	req.True(f.router.Route(f.bob, "/list"))

	// Then only the live session is listed
	lines := f.bobConn.lines()
	req.Len(lines, 2)
	req.Equal("(0) | "+chat.ColorTag(33)+"bob"+chat.Reset, lines[1])
}

func TestCommandRouter_Help(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)

	req.True(f.router.Route(f.bob2, "/help"))

	req.Equal(chat.HelpLines(), f.bob2Conn.lines())
	req.Empty(f.bobConn.lines())
}

func TestCommandRouter_Leave(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)

	req.False(f.router.Route(f.bob, "/leave"))
	req.Empty(f.bobConn.lines())
	req.Empty(f.bob2Conn.lines())
}

func TestCommandRouter_Nickname(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		fromDerived  bool
		conflict     bool
		expectedName string
		expectedLine string
	}{
		{
			name:         "missing argument",
			line:         "/nickname",
			expectedName: "bob",
			expectedLine: chat.NoNicknameProvided,
		},
		{
			name:         "free name",
			line:         "/nickname alice",
			expectedName: "alice",
			expectedLine: chat.RenameSucceeded("alice"),
		},
		{
			name:         "session holding its requested name asks for a taken one",
			line:         "/nickname bob482",
			conflict:     true,
			expectedName: "bob",
			expectedLine: chat.AutoAssignedNameTaken("bob"),
		},
		{
			name:         "derived session asks for a taken name",
			line:         "/nickname bob",
			fromDerived:  true,
			conflict:     true,
			expectedName: "bob482",
			expectedLine: chat.RequestedNameTaken("bob"),
		},
		{
			name:         "invalid name",
			line:         "/nickname /admin",
			expectedName: "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newRouterFixture(t, nil)
			if tt.conflict {
				f.metrics.EXPECT().NameConflict().Times(1)
			}
			s, conn, other := f.bob, f.bobConn, f.bob2Conn
			if tt.fromDerived {
				s, conn, other = f.bob2, f.bob2Conn, f.bobConn
			}

			req.True(f.router.Route(s, tt.line))

			req.Equal(tt.expectedName, s.Name())
			holder, ok := f.registry.Lookup(tt.expectedName)
			req.True(ok)
			req.Same(s, holder)
			req.Len(conn.lines(), 1)
			if tt.expectedLine != "" {
				req.Equal(tt.expectedLine, conn.lines()[0])
			}
			req.Empty(other.lines())
			req.Len(f.registry.Names(), 2)
		})
	}
}

func TestCommandRouter_Message_SenderTransportFails(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.metrics.EXPECT().MessageBroadcast().Times(1)
	f.metrics.EXPECT().SendFailed().Times(1)

	// Given bob's own transport is dead
	f.bobConn.failing()

	// When bob sends a message
	keepReading := f.router.Route(f.bob, "hello")

	// Then the other session still gets it and bob stops reading
	req.False(keepReading)
	req.Len(f.bob2Conn.lines(), 1)
	req.Equal(chat.Terminated, f.bob.State())
}
