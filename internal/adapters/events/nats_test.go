package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

func TestNATSPublisher_Subject(t *testing.T) {
	p := NewNATSPublisher(nil, "", nil)
	assert.Equal(t, "versecraft.poems.generated", p.Subject(ports.RunEvent{Type: "poem.generated"}))
	assert.Equal(t, "versecraft.poems.failed", p.Subject(ports.RunEvent{Type: "poem.failed"}))

	p = NewNATSPublisher(nil, "custom", nil)
	assert.Equal(t, "custom.failed", p.Subject(ports.RunEvent{}))
}

func TestNATSPublisher_BuffersWhileDisconnected(t *testing.T) {
	// nothing listens on port 1; the connection stays in reconnect mode
	p, err := Connect("nats://127.0.0.1:1", "", nil)
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), ports.RunEvent{RunID: "r1", Type: "poem.generated"})
	assert.NoError(t, err)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), ports.RunEvent{}))
}

// Runs against a real server when VERSECRAFT_TEST_NATS_URL is set.
func TestNATSPublisher_Live(t *testing.T) {
	url := os.Getenv("VERSECRAFT_TEST_NATS_URL")
	if url == "" {
		t.Skip("VERSECRAFT_TEST_NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe("test.poems.>", msgs)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	p, err := Connect(url, "test.poems", nil)
	require.NoError(t, err)
	defer p.Close()

	ev := ports.RunEvent{RunID: "r1", Type: "poem.failed", Theme: "sea", State: "error", Code: "NOT_FOUND"}
	require.NoError(t, p.Publish(context.Background(), ev))

	select {
	case m := <-msgs:
		assert.Equal(t, "test.poems.failed", m.Subject)
		var env Envelope
		require.NoError(t, json.Unmarshal(m.Data, &env))
		assert.Equal(t, ev, env.Data)
		assert.Equal(t, "versecraft", env.Source)
	case <-time.After(3 * time.Second):
		t.Fatal("no message received")
	}
}
