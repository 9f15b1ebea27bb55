// Package notifications fans post events out to websocket subscribers,
// through Redis pub/sub when it is configured and in-process otherwise.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"overthinkistan/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	// PostFeedChannel carries every post event.
	PostFeedChannel = "posts:events"

	userChannelPrefix = "notifications:user:"
)

// Sink receives a message published while no Redis client is configured.
type Sink func(channel, payload string)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local Sink
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client keeps delivery in-process.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// SetLocalSink installs the in-process receiver used without Redis.
func (n *Notifier) SetLocalSink(sink Sink) {
	n.mu.Lock()
	n.local = sink
	n.mu.Unlock()
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	if n.rdb != nil {
		return n.rdb.Publish(ctx, channel, payload).Err()
	}
	n.mu.RLock()
	sink := n.local
	n.mu.RUnlock()
	if sink != nil {
		sink(channel, payload)
	}
	return nil
}

// PublishPost sends ev to the feed channel and, for reactions, to the
// author's personal channel.
func (n *Notifier) PublishPost(ctx context.Context, ev PostEvent) error {
	if n == nil {
		return nil
	}
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := n.publish(ctx, PostFeedChannel, string(payload)); err != nil {
		return err
	}
	if (ev.Type == PostLiked || ev.Type == PostDisliked) && ev.AuthorRefID != "" && ev.AuthorRefID != ev.ActorRefID {
		return n.PublishUser(ctx, ev.AuthorRefID, string(payload))
	}
	return nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userRefID, payload string) error {
	if n == nil || userRefID == "" {
		return nil
	}
	return n.publish(ctx, UserChannel(userRefID), payload)
}

// StartSubscriber subscribes to the feed channel and every user channel and
// calls onMessage for each incoming message until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage Sink) error {
	if n.rdb == nil {
		n.SetLocalSink(onMessage)
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, PostFeedChannel, userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
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
							middleware.Logger.Error("panic in post event subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userRefID string) string {
	return userChannelPrefix + userRefID
}

// userFromChannel is the inverse of UserChannel.
func userFromChannel(channel string) (string, bool) {
	ref, ok := strings.CutPrefix(channel, userChannelPrefix)
	return ref, ok && ref != ""
}
