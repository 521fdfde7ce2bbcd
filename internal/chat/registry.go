package chat

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Conn is the transport surface a session hands to the registry. WriteText must
// be safe for concurrent callers.
type Conn interface {
	WriteText(data []byte) error
	Close() error
}

// PubSub bridges room broadcasts across server instances. Publish sends a
// payload to the event's channel; Subscribe delivers every payload published to
// that channel (including this instance's own) until the returned cancel func
// is called.
type PubSub interface {
	Publish(eventID int64, payload []byte) error
	Subscribe(eventID int64, handler func(payload []byte)) (cancel func(), err error)
}

type member struct {
	id   string
	conn Conn
}

// Registry tracks the live chat connections per event room and multicasts to
// them. It is created once at process start, injected into the websocket
// handler, and torn down by Shutdown. Structural mutation (register/unregister)
// is exclusive; broadcasts share the read lock and may run concurrently.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64][]member
	subs   map[int64]func()
	pubsub PubSub // optional; nil means local-only broadcast
	logger *zap.Logger
}

// NewRegistry creates a connection registry. pubsub may be nil.
func NewRegistry(logger *zap.Logger, pubsub PubSub) *Registry {
	return &Registry{
		rooms:  make(map[int64][]member),
		subs:   make(map[int64]func()),
		pubsub: pubsub,
		logger: logger,
	}
}

// Register adds a connection to an event room. The first connection of a room
// starts the room's cross-instance subscription.
func (r *Registry) Register(eventID int64, id string, conn Conn) {
	r.mu.Lock()
	if len(r.rooms[eventID]) == 0 && r.pubsub != nil {
		cancel, err := r.pubsub.Subscribe(eventID, func(payload []byte) {
			r.deliver(eventID, payload)
		})
		if err != nil {
			r.logger.Warn("room subscription failed, broadcasts stay local",
				zap.Int64("event_id", eventID), zap.Error(err))
		} else {
			r.subs[eventID] = cancel
		}
	}
	r.rooms[eventID] = append(r.rooms[eventID], member{id: id, conn: conn})
	r.mu.Unlock()
	r.logger.Debug("connection joined room", zap.String("conn_id", id), zap.Int64("event_id", eventID))
}

// Unregister removes a connection from an event room. Removing an absent or
// already-removed connection is a no-op. The last connection leaving a room
// cancels the room's subscription.
func (r *Registry) Unregister(eventID int64, id string) {
	r.mu.Lock()
	members, ok := r.rooms[eventID]
	if !ok {
		r.mu.Unlock()
		return
	}
	removed := false
	for i, m := range members {
		if m.id == id {
			r.rooms[eventID] = append(members[:i:i], members[i+1:]...)
			removed = true
			break
		}
	}
	if len(r.rooms[eventID]) == 0 {
		delete(r.rooms, eventID)
		if cancel, ok := r.subs[eventID]; ok {
			cancel()
			delete(r.subs, eventID)
		}
	}
	r.mu.Unlock()
	if removed {
		r.logger.Debug("connection left room", zap.String("conn_id", id), zap.Int64("event_id", eventID))
	}
}

// Broadcast serializes v once and delivers it to every connection in the event
// room, in registration order. A connection whose write fails is unregistered
// and closed; the broadcast continues and never returns an error to the caller.
func (r *Registry) Broadcast(eventID int64, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal broadcast payload", zap.Error(err))
		return
	}
	r.deliver(eventID, data)
}

// Publish routes a room payload through the cross-instance bridge when the
// room's subscription is active, so every instance (including this one)
// broadcasts it exactly once. Without a bridge, or when the room's
// subscription never came up, it delivers locally instead.
func (r *Registry) Publish(eventID int64, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal broadcast payload", zap.Error(err))
		return
	}
	r.mu.RLock()
	_, subscribed := r.subs[eventID]
	r.mu.RUnlock()
	if r.pubsub != nil && subscribed {
		if err := r.pubsub.Publish(eventID, data); err == nil {
			return
		}
		r.logger.Warn("publish failed, falling back to local broadcast",
			zap.Int64("event_id", eventID), zap.Error(err))
	}
	r.deliver(eventID, data)
}

func (r *Registry) deliver(eventID int64, data []byte) {
	r.mu.RLock()
	members := make([]member, len(r.rooms[eventID]))
	copy(members, r.rooms[eventID])
	r.mu.RUnlock()

	for _, m := range members {
		if err := m.conn.WriteText(data); err != nil {
			// Peer is gone; self-heal so stale entries never accumulate.
			r.logger.Debug("dropping dead connection",
				zap.String("conn_id", m.id), zap.Int64("event_id", eventID), zap.Error(err))
			r.Unregister(eventID, m.id)
			_ = m.conn.Close()
		}
	}
}

// RoomSize returns the number of live connections in an event room.
func (r *Registry) RoomSize(eventID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[eventID])
}

// Shutdown closes every live connection and cancels all room subscriptions.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eventID, members := range r.rooms {
		for _, m := range members {
			_ = m.conn.Close()
		}
		delete(r.rooms, eventID)
	}
	for eventID, cancel := range r.subs {
		cancel()
		delete(r.subs, eventID)
	}
}
