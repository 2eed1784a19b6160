// Package events publishes post, comment and like notifications after the
// corresponding write has committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects
const (
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	PostLiked      = "post.liked"
	PostUnliked    = "post.unliked"
	CommentCreated = "comment.created"
	CommentDeleted = "comment.deleted"
)

// Event is the payload published on a subject
type Event struct {
	Subject   string    `json:"-"`
	PostID    string    `json:"post_id"`
	CommentID string    `json:"comment_id,omitempty"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends events to subscribers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NatsPublisher publishes JSON encoded events over NATS core
type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(conn *nats.Conn) *NatsPublisher {
	return &NatsPublisher{conn: conn}
}

func (p *NatsPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Subject, err)
	}
	if err := p.conn.Publish(event.Subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event.Subject, err)
	}
	return nil
}

// Subscribe delivers every event published under the post.* and comment.*
// subjects to handler.
func Subscribe(conn *nats.Conn, handler func(Event)) ([]*nats.Subscription, error) {
	subs := make([]*nats.Subscription, 0, 2)
	for _, subject := range []string{"post.*", "comment.*"} {
		sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
			var event Event
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Printf("dropping malformed %s event: %v", msg.Subject, err)
				return
			}
			event.Subject = msg.Subject
			handler(event)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
