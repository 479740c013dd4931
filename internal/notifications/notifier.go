package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"snapgram/internal/middleware"
	"snapgram/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes room events. With Redis every instance subscribes to
// chat:room:* and delivers to its own sockets; without Redis, or until the
// subscription is live, delivery stays in-process.
type Notifier struct {
	rdb        *redis.Client
	hub        *RoomHub
	subscribed atomic.Bool
}

// NewNotifier creates a Notifier delivering into hub. rdb may be nil.
func NewNotifier(rdb *redis.Client, hub *RoomHub) *Notifier {
	return &Notifier{rdb: rdb, hub: hub}
}

// Publish implements Publisher. Events go through Redis only while this
// instance is subscribed, since its own sockets are fed by that
// subscription. A Redis failure falls back to local delivery.
func (n *Notifier) Publish(ctx context.Context, room string, ev Event) error {
	ev.Room = room
	frame, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if n.rdb != nil && n.subscribed.Load() {
		err := n.rdb.Publish(ctx, RoomChannel(room), frame).Err()
		if err == nil {
			observability.MessagesPublished.WithLabelValues(ev.Type, "redis").Inc()
			return nil
		}
		middleware.RedisErrors.WithLabelValues("publish").Inc()
		log.Printf("Notifier: redis publish to %s failed, delivering locally: %v", room, err)
	}

	if n.hub != nil {
		n.hub.BroadcastToRoom(room, frame)
	}
	observability.MessagesPublished.WithLabelValues(ev.Type, "local").Inc()
	return nil
}

// Start subscribes to every room channel and forwards frames into the hub
// until ctx is cancelled. It returns once the subscription is confirmed.
func (n *Notifier) Start(ctx context.Context) error {
	if n.rdb == nil || n.hub == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe room channels: %w", err)
	}
	ch := sub.Channel()
	n.subscribed.Store(true)

	go func() {
		defer func() {
			n.subscribed.Store(false)
			_ = sub.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in RoomSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					room := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
					n.hub.BroadcastToRoom(room, []byte(msg.Payload))
				}()
			}
		}
	}()

	return nil
}
