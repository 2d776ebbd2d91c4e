// Package hub fans events out to websocket clients through Redis pub/sub.
//
// Every event is published to Redis first, and every process (including
// the publisher) delivers it to its local clients from the subscription.
// That single path keeps multi-instance deployments and the single-node
// case identical, and it is what makes cross-instance broadcasts such as
// kicks work.
package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/jangdahyun/codingline/internal/domain"
)

// Websocket timing shared by hub and client.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Draw fragments are the
	// largest frames clients send.
	maxMessageSize = 8192
)

// channelPrefix namespaces the fanout channels in Redis.
const channelPrefix = "fanout:"

// Hub maintains the local client registry keyed by group and bridges it
// to the Redis fanout channels.
type Hub struct {
	redis *redis.Client

	groupsMu sync.RWMutex
	groups   map[string]map[*Client]bool

	subCtx    context.Context
	subCancel context.CancelFunc
	sub       *redis.PubSub
}

// NewHub creates a Hub backed by the given Redis client.
func NewHub(redisClient *redis.Client) *Hub {
	if redisClient == nil {
		panic("Redis client cannot be nil for Hub")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		redis:     redisClient,
		groups:    make(map[string]map[*Client]bool),
		subCtx:    ctx,
		subCancel: cancel,
	}
}

// Publish sends an event to every member of the group, across all
// instances. Delivery to local clients happens when the message comes
// back through the subscription.
func (h *Hub) Publish(ctx context.Context, group string, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"group": group, "event": event.Name}).
			Error("Failed to marshal event for fanout")
		return
	}
	if err := h.redis.Publish(ctx, channelPrefix+group, payload).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"group": group, "event": event.Name}).
			Error("Failed to publish event to Redis")
	}
}

// Run consumes the Redis pattern subscription and delivers events to
// local clients. It blocks until StopAllSubscriptions is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	h.sub = h.redis.PSubscribe(h.subCtx, channelPrefix+"*")
	ch := h.sub.Channel()

	for msg := range ch {
		group := strings.TrimPrefix(msg.Channel, channelPrefix)
		h.deliver(group, []byte(msg.Payload))
	}
	log.Info("Hub is shutting down...")
}

// StopAllSubscriptions terminates the fanout subscription, which unblocks
// Run.
func (h *Hub) StopAllSubscriptions() {
	if h.sub != nil {
		_ = h.sub.Close()
	}
	h.subCancel()
}

// deliver hands the event to every local client of the group. Sends are
// non-blocking so one slow client never stalls the fanout; a full send
// buffer drops the event for that client only.
func (h *Hub) deliver(group string, payload []byte) {
	var event domain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		logrus.WithError(err).WithField("group", group).Warn("Dropping malformed fanout payload")
		return
	}

	h.groupsMu.RLock()
	members, ok := h.groups[group]
	clients := make([]*Client, 0, len(members))
	if ok {
		for client := range members {
			clients = append(clients, client)
		}
	}
	h.groupsMu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
			logrus.WithFields(logrus.Fields{"group": group, "user_id": client.UserID()}).
				Warn("Client send channel full during fanout, dropping event")
		}

		// Terminal events close the socket once the frame is queued.
		switch event.Name {
		case domain.EventKicked:
			client.Shutdown(CloseForbidden, "kicked")
		case domain.EventRoomClosed:
			client.Shutdown(CloseNormal, "room closed")
		}
	}
}

// Register adds the client to all of its groups.
func (h *Hub) Register(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.groupsMu.Lock()
	for _, group := range client.groups {
		members, ok := h.groups[group]
		if !ok {
			members = make(map[*Client]bool)
			h.groups[group] = members
		}
		members[client] = true
	}
	h.groupsMu.Unlock()

	logrus.WithFields(logrus.Fields{"user_id": client.UserID(), "groups": client.groups}).
		Debug("Client registered to Hub")
}

// Unregister removes the client from its groups and closes its send
// channel, which ends its write pump.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.groupsMu.Lock()
	registered := false
	for _, group := range client.groups {
		if members, ok := h.groups[group]; ok {
			if members[client] {
				registered = true
				delete(members, client)
			}
			if len(members) == 0 {
				delete(h.groups, group)
			}
		}
	}
	h.groupsMu.Unlock()

	if registered {
		client.closeSend()
	}
}

// LocalClients reports how many clients of the group are attached to this
// instance. Used by tests and the health endpoint; the authoritative
// presence count lives in the database.
func (h *Hub) LocalClients(group string) int {
	h.groupsMu.RLock()
	defer h.groupsMu.RUnlock()
	return len(h.groups[group])
}
