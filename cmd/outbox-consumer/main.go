// Command outbox-consumer tails the ticket event topics. The player-facing
// display mirrors ticket state off this stream; running it standalone is
// also handy for watching the event flow in dev.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/infra"
	"github.com/octane/cashier/internal/projection"
)

var topics = []string{
	string(domain.EventTicketIssued),
	string(domain.EventTicketActive),
	string(domain.EventTicketFinished),
	string(domain.EventTicketExpired),
	string(domain.EventTicketPaidOut),
	string(domain.EventOperatorLogin),
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED is false; nothing to consume")
	}

	groupID := os.Getenv("KAFKA_GROUP_ID")
	if groupID == "" {
		groupID = "pos-display"
	}

	logger.Info("outbox-consumer starting", "brokers", cfg.KafkaBrokers, "group", groupID)

	// Shared snapshot store for the display mirror.
	snapshots := projection.NewInMemoryStore()

	var wg sync.WaitGroup
	for _, topic := range topics {
		consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, groupID, cfg.KafkaEnabled, logger)
		wg.Add(1)
		go func(topic string, c *infra.KafkaConsumer) {
			defer wg.Done()
			defer c.Close()
			consume(ctx, topic, c, snapshots, logger)
		}(topic, consumer)
	}

	wg.Wait()
	logger.Info("outbox-consumer shutting down")
	return nil
}

func consume(ctx context.Context, topic string, c *infra.KafkaConsumer, snapshots projection.Store, logger *slog.Logger) {
	for {
		msg, err := c.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("read message", "topic", topic, "error", err)
			continue
		}

		var draft domain.OutboxDraft
		if err := json.Unmarshal(msg.Value, &draft); err != nil {
			logger.Error("decode event", "topic", topic, "error", err)
			continue
		}

		if err := projection.ApplyEvent(ctx, snapshots, draft); err != nil {
			logger.Error("apply projection", "topic", topic, "event_id", draft.EventID, "error", err)
			continue
		}

		logger.Info("ticket event",
			"topic", topic,
			"event_id", draft.EventID,
			"aggregate_id", draft.AggregateID,
			"event_type", draft.EventType,
			"occurred_at", draft.OccurredAt,
		)
	}
}
