package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	name   string
	log    *deliveryLog // optional, records cross-connection order
	frames [][]byte
	fail   bool
	closed bool
}

type deliveryLog struct {
	mu    sync.Mutex
	order []string
}

func (l *deliveryLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (c *fakeConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection reset by peer")
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	if c.log != nil {
		c.log.record(c.name)
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop(), nil)
}

func TestBroadcastFanOut(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	a, b, c := &fakeConn{name: "a"}, &fakeConn{name: "b"}, &fakeConn{name: "c"}
	other := &fakeConn{name: "other"}
	r.Register(42, "a", a)
	r.Register(42, "b", b)
	r.Register(42, "c", c)
	r.Register(7, "other", other)

	r.Broadcast(42, Outbound{Content: "hello", Email: "u7@example.com", UserID: 7})

	// Echo policy: every room member receives the frame, including the sender's
	// own connection.
	for _, conn := range []*fakeConn{a, b, c} {
		frames := conn.received()
		require.Len(t, frames, 1)
		var out Outbound
		require.NoError(t, json.Unmarshal(frames[0], &out))
		require.Equal(t, "hello", out.Content)
		require.Equal(t, "u7@example.com", out.Email)
		require.Equal(t, int64(7), out.UserID)
	}
	require.Empty(t, other.received(), "other rooms must not receive the frame")
}

func TestBroadcastDeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	log := &deliveryLog{}
	for _, name := range []string{"first", "second", "third"} {
		r.Register(1, name, &fakeConn{name: name, log: log})
	}

	r.Broadcast(1, Outbound{Content: "x"})

	require.Equal(t, []string{"first", "second", "third"}, log.order)
}

func TestBroadcastSelfHealing(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	a, dead, c := &fakeConn{name: "a"}, &fakeConn{name: "dead", fail: true}, &fakeConn{name: "c"}
	r.Register(42, "a", a)
	r.Register(42, "dead", dead)
	r.Register(42, "c", c)

	r.Broadcast(42, Outbound{Content: "one"})

	// The dead peer is pruned and closed; delivery to the rest continues.
	require.Len(t, a.received(), 1)
	require.Len(t, c.received(), 1)
	require.True(t, dead.closed)
	require.Equal(t, 2, r.RoomSize(42))

	r.Broadcast(42, Outbound{Content: "two"})
	require.Len(t, a.received(), 2)
	require.Len(t, c.received(), 2)
	require.Empty(t, dead.received(), "no delivery attempts to a pruned connection")
}

func TestUnregisterIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	a := &fakeConn{name: "a"}
	r.Register(42, "a", a)
	require.Equal(t, 1, r.RoomSize(42))

	r.Unregister(42, "a")
	require.Equal(t, 0, r.RoomSize(42))

	// Removing an absent connection, or from an unknown room, is a no-op.
	r.Unregister(42, "a")
	r.Unregister(99, "nobody")
	require.Equal(t, 0, r.RoomSize(42))
}

func TestShutdownClosesAllConnections(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	conns := []*fakeConn{{name: "a"}, {name: "b"}, {name: "c"}}
	r.Register(1, "a", conns[0])
	r.Register(1, "b", conns[1])
	r.Register(2, "c", conns[2])

	r.Shutdown()

	for _, c := range conns {
		require.True(t, c.closed)
	}
	require.Equal(t, 0, r.RoomSize(1))
	require.Equal(t, 0, r.RoomSize(2))
}

type fakePubSub struct {
	mu           sync.Mutex
	published    [][]byte
	handler      func(payload []byte)
	subscribeErr error
	cancelled    bool
}

func (p *fakePubSub) Publish(eventID int64, payload []byte) error {
	p.mu.Lock()
	p.published = append(p.published, payload)
	handler := p.handler
	p.mu.Unlock()
	// Loop the payload back like a real broker would, to this instance too.
	if handler != nil {
		handler(payload)
	}
	return nil
}

func (p *fakePubSub) Subscribe(eventID int64, handler func(payload []byte)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return nil, p.subscribeErr
	}
	p.handler = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cancelled = true
	}, nil
}

func TestPublishRoutesThroughBridge(t *testing.T) {
	t.Parallel()

	ps := &fakePubSub{}
	r := NewRegistry(zap.NewNop(), ps)
	a, b := &fakeConn{name: "a"}, &fakeConn{name: "b"}
	r.Register(42, "a", a)
	r.Register(42, "b", b)

	r.Publish(42, Outbound{Content: "hi", Email: "u@example.com", UserID: 1})

	// Exactly one publish, and exactly one local delivery per member via the
	// subscriber loopback.
	require.Len(t, ps.published, 1)
	require.Len(t, a.received(), 1)
	require.Len(t, b.received(), 1)

	r.Unregister(42, "a")
	require.False(t, ps.cancelled)
	r.Unregister(42, "b")
	require.True(t, ps.cancelled, "last member leaving cancels the room subscription")
}

func TestPublishFallsBackWhenSubscribeFails(t *testing.T) {
	t.Parallel()

	ps := &fakePubSub{subscribeErr: errors.New("redis down")}
	r := NewRegistry(zap.NewNop(), ps)
	a := &fakeConn{name: "a"}
	r.Register(42, "a", a)

	r.Publish(42, Outbound{Content: "hi", Email: "u@example.com", UserID: 1})

	// With no subscription relaying the channel back to this instance, the
	// payload must be delivered locally instead of published into the void.
	require.Empty(t, ps.published)
	require.Len(t, a.received(), 1)
}
