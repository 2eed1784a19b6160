package events_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	err := events.NopPublisher{}.Publish(context.Background(), events.Event{Subject: events.PostCreated})
	assert.NoError(t, err)
}

func TestNatsPublisherRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("Skipping test - NATS_URL not configured")
	}

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	received := make(chan events.Event, 1)
	subs, err := events.Subscribe(conn, func(e events.Event) { received <- e })
	require.NoError(t, err)
	defer func() {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}()
	require.NoError(t, conn.Flush())

	sent := events.Event{
		Subject:   events.PostLiked,
		PostID:    gofakeit.UUID(),
		UserID:    gofakeit.UUID(),
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, events.NewNatsPublisher(conn).Publish(context.Background(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}
