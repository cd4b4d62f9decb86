// Package events publishes run outcomes to a message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/0xcro3dile/versecraft/internal/domain/ports"
)

// DefaultSubject prefixes every published subject.
const DefaultSubject = "versecraft.poems"

// Envelope is the message published for each run.
type Envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Data      ports.RunEvent `json:"data"`
}

// NATSPublisher implements ports.EventPublisher on a core NATS connection.
// Runs publish to "<subject>.generated" or "<subject>.failed".
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
	now     func() time.Time
}

// Connect dials url and returns a publisher. The connection retries in the
// background, so a bus outage never blocks runs.
func Connect(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("versecraft"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return NewNATSPublisher(nc, subject, logger), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Publish sends one envelope. The payload carries no credential because
// RunEvent has no field for one.
func (p *NATSPublisher) Publish(_ context.Context, ev ports.RunEvent) error {
	data, err := json.Marshal(Envelope{
		ID:        ev.RunID,
		Type:      ev.Type,
		Source:    "versecraft",
		Timestamp: p.now().UTC(),
		Data:      ev,
	})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	subject := p.Subject(ev)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.logger.Debug("published event", zap.String("subject", subject), zap.String("type", ev.Type))
	return nil
}

// Subject maps an event type like "poem.generated" to its subject.
func (p *NATSPublisher) Subject(ev ports.RunEvent) string {
	suffix := "failed"
	if ev.Type == "poem.generated" {
		suffix = "generated"
	}
	return p.subject + "." + suffix
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, ports.RunEvent) error { return nil }
