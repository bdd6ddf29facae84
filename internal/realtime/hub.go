package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Publisher is what services depend on to emit notifications. The Hub is
// passed explicitly to services that need it.
type Publisher interface {
	Publish(ctx context.Context, topic, event string, payload interface{})
}

// Hub maintains topic -> set of connections and broadcasts messages.
// With Redis configured, publishes go through Redis so every bridged instance
// (including this one) delivers exactly once. Topics whose Redis subscription
// is missing are served by local broadcast.
type Hub struct {
	topics      map[string]map[string]*Client
	subs        map[string]func() // active Redis subscriptions
	subscribing map[string]bool
	mu          sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes topic events for cross-instance broadcast.
type RedisPublisher interface {
	PublishTopicEvent(ctx context.Context, topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to topic channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:      make(map[string]map[string]*Client),
		subs:        make(map[string]func()),
		subscribing: make(map[string]bool),
		logger:      logger,
		redis:       redisPub,
		redisSub:    redisSub,
	}
}

// Register adds a client to its topic. The Redis subscription for the topic
// is started outside the lock; a failed attempt is retried on the next Register.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.topics[c.Topic] == nil {
		h.topics[c.Topic] = make(map[string]*Client)
	}
	h.topics[c.Topic][c.ID] = c
	_, active := h.subs[c.Topic]
	subscribe := h.redisSub != nil && !active && !h.subscribing[c.Topic]
	if subscribe {
		h.subscribing[c.Topic] = true
	}
	h.mu.Unlock()
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("topic", c.Topic))

	if subscribe {
		h.subscribe(c.Topic)
	}
}

func (h *Hub) subscribe(topic string) {
	cancel, err := h.redisSub.SubscribeTopic(topic, func(event string, payload []byte) {
		h.Broadcast(topic, event, json.RawMessage(payload))
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribing, topic)
	if err != nil {
		h.logger.Warn("redis subscribe failed, topic served locally", zap.String("topic", topic), zap.Error(err))
		return
	}
	if len(h.topics[topic]) == 0 {
		cancel()
		return
	}
	h.subs[topic] = cancel
}

// Unregister removes a client. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.topics[c.Topic]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.topics, c.Topic)
		if cancel, ok := h.subs[c.Topic]; ok {
			cancel()
			delete(h.subs, c.Topic)
		}
	}
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Broadcast sends a message to all local clients of a topic.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode realtime payload", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[topic] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("client buffer full, dropping", zap.String("client_id", c.ID))
		}
	}
}

// Publish delivers event to every subscriber of topic across instances.
// Failures are logged; notifications never fail the caller.
func (h *Hub) Publish(ctx context.Context, topic, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(topic, event, payload)
		return
	}
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode realtime payload", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.redis.PublishTopicEvent(ctx, topic, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("topic", topic), zap.Error(err))
		h.Broadcast(topic, event, json.RawMessage(data))
		return
	}
	if !h.bridged(topic) {
		h.Broadcast(topic, event, json.RawMessage(data))
	}
}

// bridged reports whether local clients of topic receive Redis deliveries.
func (h *Hub) bridged(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subs[topic]
	return ok
}

// Subscribers returns the number of local clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
