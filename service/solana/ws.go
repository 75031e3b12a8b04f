package solana

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// LogStream is a live subscription to transaction log notifications.
type LogStream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

// LogSubscriber opens log streams for programs of interest. Narrowed to an
// interface so the stream adapter can be tested without a websocket endpoint.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, mentions solana.PublicKey) (LogStream, error)
	Close()
}

type wsSubscriber struct {
	client *ws.Client
	logger *slog.Logger
}

// NewLogSubscriber connects to the ledger websocket endpoint.
func NewLogSubscriber(ctx context.Context, wsURL string, logger *slog.Logger) (LogSubscriber, error) {
	client, err := ws.Connect(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("connect websocket %s: %w", wsURL, err)
	}
	logger.Info("connected to ledger websocket", "url", wsURL)
	return &wsSubscriber{client: client, logger: logger}, nil
}

func (s *wsSubscriber) SubscribeLogs(ctx context.Context, mentions solana.PublicKey) (LogStream, error) {
	sub, err := s.client.LogsSubscribeMentions(mentions, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("subscribe logs for %s: %w", mentions, err)
	}
	return sub, nil
}

func (s *wsSubscriber) Close() {
	s.client.Close()
}
