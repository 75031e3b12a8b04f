// Package nats publishes indexing notifications to NATS JetStream so
// downstream consumers can react to account and transaction updates without
// polling the query API.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing indexer notifications.
type Publisher interface {
	// PublishAccountUpdate publishes a single account change notification
	// to the subject "cypher.accounts.{address}".
	PublishAccountUpdate(ctx context.Context, event *AccountUpdateEvent) error

	// PublishTransaction publishes an indexed-transaction notification
	// to the subject "cypher.txns.{signature}".
	PublishTransaction(ctx context.Context, event *TransactionEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes indexer notifications to NATS JetStream.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for notifications.
	StreamName = "CYPHER"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "cypher.>"

	// StreamRetention is how long messages are retained.
	StreamRetention = 7 * 24 * time.Hour
)

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("cypher-indexer"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:     nc,
		js:     js,
		logger: logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Account and transaction notifications from the ledger indexer",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	_, err = p.js.CreateStream(ctx, streamConfig)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishAccountUpdate publishes a single account change notification.
func (p *JetStreamPublisher) PublishAccountUpdate(ctx context.Context, event *AccountUpdateEvent) error {
	subject := fmt.Sprintf("cypher.accounts.%s", event.Address)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal account update event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish account update: %w", err)
	}

	p.logger.Debug("published account update event",
		"subject", subject,
		"address", event.Address,
		"slot", event.Slot,
	)

	return nil
}

// PublishTransaction publishes an indexed-transaction notification.
func (p *JetStreamPublisher) PublishTransaction(ctx context.Context, event *TransactionEvent) error {
	subject := fmt.Sprintf("cypher.txns.%s", event.Signature)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish transaction: %w", err)
	}

	p.logger.Debug("published transaction event",
		"subject", subject,
		"signature", event.Signature,
		"slot", event.Slot,
	)

	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
