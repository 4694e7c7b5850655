package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/segmentio/kafka-go"
)

var ErrMalformedNotification = errors.New("malformed payment notification")

type Ledger interface {
	UpdateStatus(ctx context.Context, id string, status domain.Status, processorRef string) (bool, error)
}

// NotificationConsumer applies payment results delivered out of band. It
// races freely with reconciliation; the ledger guards every write.
type NotificationConsumer struct {
	ledger Ledger
	reader *kafka.Reader
	log    *slog.Logger
}

func NewNotificationConsumer(l Ledger, log *slog.Logger, topic, groupID string, brokers ...string) *NotificationConsumer {
	return &NotificationConsumer{
		ledger: l,
		reader: newReader(brokers, topic, groupID),
		log:    log.With("consumer", "notifications", "topic", topic),
	}
}

func (c *NotificationConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *NotificationConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

func (c *NotificationConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.ErrorContext(ctx, "error reading message", "error", err)
		return
	}

	if err := c.handle(ctx, m.Value); err != nil {
		c.log.WarnContext(ctx, "notification not applied", "offset", m.Offset, "error", err)
	}
}

func (c *NotificationConsumer) handle(ctx context.Context, value []byte) error {
	var n domain.Notification
	if err := json.Unmarshal(value, &n); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	if n.RecordID == "" || !n.Status.Valid() || n.Status == domain.StatusPending {
		return fmt.Errorf("%w: record %q status %q", ErrMalformedNotification, n.RecordID, n.Status)
	}

	applied, err := c.ledger.UpdateStatus(ctx, n.RecordID, n.Status, n.ProcessorRef)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			c.log.WarnContext(ctx, "notification for unknown record skipped", "record_id", n.RecordID, "event_id", n.EventID)
			return nil
		}
		return fmt.Errorf("apply notification %s: %w", n.EventID, err)
	}

	c.log.InfoContext(ctx, "notification processed",
		"record_id", n.RecordID, "event_id", n.EventID, "status", n.Status, "applied", applied)
	return nil
}
