package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

type Carts interface {
	Clear(ctx context.Context, buyerID string)
}

// CartClearer empties a buyer's cart once one of their orders is paid, so
// the hosted flow clears the cart even when the buyer never returns.
type CartClearer struct {
	carts  Carts
	reader *kafka.Reader
	log    *slog.Logger
}

func NewCartClearer(carts Carts, log *slog.Logger, topic, groupID string, brokers ...string) *CartClearer {
	return &CartClearer{
		carts:  carts,
		reader: newReader(brokers, topic, groupID),
		log:    log.With("consumer", "cart-clearer", "topic", topic),
	}
}

func (c *CartClearer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.getMessageAndEmptyCart(ctx)
	}
}

func (c *CartClearer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

func (c *CartClearer) getMessageAndEmptyCart(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.ErrorContext(ctx, "error reading message", "error", err)
		return
	}
	c.handle(ctx, m.Value)
}

func (c *CartClearer) handle(ctx context.Context, value []byte) {
	var ev domain.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		c.log.WarnContext(ctx, "error parsing ledger event", "error", err)
		return
	}
	if ev.Kind != domain.KindOrder || ev.To != domain.StatusPaid || ev.BuyerID == "" {
		return
	}

	c.carts.Clear(ctx, ev.BuyerID)
	c.log.InfoContext(ctx, "cart cleared after payment", "buyer_id", ev.BuyerID, "record_id", ev.RecordID)
}
