// Package events publishes game outcomes to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "pairs.game."

// Event announces a finished game
type Event struct {
	GameID      string    `json:"gameId"`
	Outcome     string    `json:"outcome"` // won, lost
	SecondsLeft int       `json:"secondsLeft"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	At          time.Time `json:"at"`
}

// Subject is the broker subject the event is published on
func (e Event) Subject() string {
	return subjectPrefix + e.Outcome
}

// Publisher sends events somewhere
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// NATSPublisher publishes events as JSON on NATS
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to the NATS server at url
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("memory-pairs"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(e.Subject(), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Subject(), err)
	}
	return nil
}

// Close flushes pending events and disconnects
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
