package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	natspkg "github.com/cypherlabs/cypher-indexer/service/nats"
)

// subscribeCommand streams live indexer notifications.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to indexer notifications",
		ArgsUsage: "[subject]",
		Description: `Subscribe to notifications published to NATS JetStream.

Subjects follow the pattern:
  cypher.accounts.{address}   account updates
  cypher.txns.{signature}     indexed transactions

Wildcards work as usual, e.g. "cypher.accounts.>" for all account updates.
With no argument every notification on "cypher.>" is streamed.

Example:
  cypher nats subscribe "cypher.accounts.>"`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "cypher-cli",
			},
		},
		Action: func(c *cli.Context) error {
			subject := natspkg.StreamSubjects
			if c.NArg() > 0 {
				subject = c.Args().Get(0)
			}
			return streamNotifications(c.String("nats-url"), subject, c.Bool("durable"), c.String("consumer-name"))
		},
	}
}

func streamNotifications(natsURL, subject string, durable bool, consumerName string) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durable {
		consumerConfig.Durable = consumerName
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "subscribed to %s (ctrl-c to stop)\n", subject)

	consume, err := cons.Consume(func(msg jetstream.Msg) {
		fmt.Printf("%s %s\n", msg.Subject(), string(msg.Data()))
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	defer consume.Stop()

	<-ctx.Done()
	return nil
}
