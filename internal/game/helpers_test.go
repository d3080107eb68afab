package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []any
	closed bool
	full   bool
}

func (c *fakeConn) Send(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full || c.closed {
		return false
	}
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.msgs...)
}

// lastOf returns the most recent message of type T sent to c.
func lastOf[T any](t *testing.T, c *fakeConn) T {
	t.Helper()
	msgs := c.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msg, ok := msgs[i].(T); ok {
			return msg
		}
	}
	var zero T
	t.Fatalf("no %T message among %d sent", zero, len(msgs))
	return zero
}

func countOf[T any](c *fakeConn) int {
	n := 0
	for _, msg := range c.messages() {
		if _, ok := msg.(T); ok {
			n++
		}
	}
	return n
}

type fakeOracle struct {
	mu       sync.Mutex
	verdicts []Verdict
	err      error
	release  chan struct{}
	calls    int
	keywords []string
	guesses  [][]string
}

func (o *fakeOracle) Judge(ctx context.Context, keyword string, guesses []string) ([]Verdict, error) {
	o.mu.Lock()
	o.calls++
	o.keywords = append(o.keywords, keyword)
	o.guesses = append(o.guesses, append([]string(nil), guesses...))
	release := o.release
	verdicts, err := o.verdicts, o.err
	o.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return verdicts, err
}

type fakeImages struct {
	mu   sync.Mutex
	puts int
	err  error
}

func (f *fakeImages) Put(ctx context.Context, roomID string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.puts++
	return "/images/" + roomID + "-drawing", nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	created []RoomRecord
	rounds  []RoundRecord
	closed  []ClosedRecord
}

func (r *fakeRecorder) RoomCreated(_ context.Context, rec RoomRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, rec)
	return nil
}

func (r *fakeRecorder) RoundResolved(_ context.Context, rec RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, rec)
	return nil
}

func (r *fakeRecorder) RoomClosed(_ context.Context, rec ClosedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, rec)
	return nil
}

// table is a running room with one connection per seated player.
type table struct {
	svc    *Service
	roomID string
	conns  map[string]*fakeConn
	ids    map[string]string
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc := NewService(opts)
	t.Cleanup(svc.Close)
	return svc
}

// seat creates a room as the first nickname and joins the rest.
func seat(t *testing.T, svc *Service, settings Settings, nicknames ...string) *table {
	t.Helper()
	tb := &table{svc: svc, conns: map[string]*fakeConn{}, ids: map[string]string{}}
	creator := &fakeConn{}
	require.NoError(t, svc.CreateRoom(creator, settings, nicknames[0]))
	created := lastOf[RoomCreated](t, creator)
	tb.roomID = created.RoomID
	tb.conns[nicknames[0]] = creator
	tb.ids[nicknames[0]] = created.PlayerID
	for _, name := range nicknames[1:] {
		conn := &fakeConn{}
		require.NoError(t, svc.JoinRoom(conn, tb.roomID, name, settings.Password, ""))
		joined := lastOf[RoomJoined](t, conn)
		tb.conns[name] = conn
		tb.ids[name] = joined.PlayerID
	}
	return tb
}

func (tb *table) conn(name string) *fakeConn { return tb.conns[name] }
func (tb *table) id(name string) string      { return tb.ids[name] }

func (tb *table) draw(t *testing.T, name, keyword string) {
	t.Helper()
	require.NoError(t, tb.svc.SubmitDrawing(context.Background(), tb.conn(name), tb.roomID, tb.id(name), keyword, "https://cdn.example/"+keyword+".png", nil, ""))
}

func (tb *table) guess(t *testing.T, name, text string) {
	t.Helper()
	require.NoError(t, tb.svc.SubmitGuess(tb.conn(name), tb.roomID, tb.id(name), text))
}

func (tb *table) ready(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, tb.svc.PlayerReady(tb.conn(name), tb.roomID, tb.id(name)))
	}
}

func (tb *table) snapshot(t *testing.T, name string) Snapshot {
	t.Helper()
	snap, err := tb.svc.Snapshot(tb.roomID, tb.id(name))
	require.NoError(t, err)
	return snap
}

func (tb *table) player(t *testing.T, name string) PlayerView {
	t.Helper()
	for _, p := range tb.snapshot(t, name).Players {
		if p.ID == tb.id(name) {
			return p
		}
	}
	t.Fatalf("player %s not in room", name)
	return PlayerView{}
}

func defaultSettings() Settings {
	return Settings{Password: "secret", MaxPlayers: 4, TotalRounds: 2}
}
