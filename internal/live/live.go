// Package live diffuse les événements de commande vers la console admin.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
	EventOrderStatus  = "order.status"
	EventPaymentFail  = "payment.failed"
	EventRefunded     = "payment.refunded"

	Channel    = "atelier:live"
	bufferSize = 16
)

type Event struct {
	Type    string    `json:"type"`
	OrderID string    `json:"order_id"`
	Status  string    `json:"status,omitempty"`
	Total   string    `json:"total,omitempty"`
	At      time.Time `json:"at"`
}

type Broker interface {
	Publish(ctx context.Context, e Event) error
	Subscribe() (<-chan Event, func())
}

// Hub diffuse en mémoire. Un abonné trop lent perd des événements plutôt que de bloquer.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, bufferSize)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// RedisBroker publie sur Redis pour que toutes les instances reçoivent l'événement
type RedisBroker struct {
	rdb *redis.Client
	hub *Hub
	log *zap.Logger
}

func NewRedisBroker(rdb *redis.Client, log *zap.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, hub: NewHub(), log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel, data).Err()
}

func (b *RedisBroker) Subscribe() (<-chan Event, func()) {
	return b.hub.Subscribe()
}

// Run relaie le canal Redis vers le hub local jusqu'à l'annulation du contexte
func (b *RedisBroker) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	b.log.Info("📡 Abonné au canal live", zap.String("channel", Channel))
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.log.Warn("⚠️ événement live illisible", zap.Error(err))
				continue
			}
			_ = b.hub.Publish(ctx, e)
		}
	}
}

// PublishAsync ne bloque jamais la requête appelante
func PublishAsync(b Broker, e Event, log *zap.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := b.Publish(ctx, e); err != nil {
			log.Warn("⚠️ publication live", zap.String("type", e.Type), zap.Error(err))
		}
	}()
}
