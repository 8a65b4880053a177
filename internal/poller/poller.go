package poller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/segmentio/kafka-go"
)

var ErrMissingCartKey = errors.New("missing or invalid cart_key")

// PaymentCompleted is relayed from the payment provider's webhook once a
// visitor has paid for their cart.
type PaymentCompleted struct {
	CartKey   string `json:"cart_key"`
	PaymentID string `json:"payment_id,omitempty"`
}

// CartClearer empties one cart. *service.CartService satisfies it.
type CartClearer interface {
	Clear(ctx context.Context, key string) (domain.Cart, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Poller clears carts whose payment has completed.
type Poller struct {
	carts   CartClearer
	reader  messageReader
	log     *logger.Logger
	backoff time.Duration
}

func NewPoller(carts CartClearer, log *logger.Logger, cfg Config) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(carts, reader, log)
}

func newPoller(carts CartClearer, reader messageReader, log *logger.Logger) *Poller {
	return &Poller{carts: carts, reader: reader, log: log, backoff: time.Second}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error(context.Background(), "error closing reader", err)
	}
}

// handleNext returns an error only when the reader itself failed, so Run can
// back off. Bad payloads are logged and skipped.
func (p *Poller) handleNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error(ctx, "error reading message", err)
		}
		return err
	}

	event, err := parse(m.Value)
	if err != nil {
		p.log.Warn(p.log.WithField(ctx, "offset", m.Offset), "skipping payment message", err)
		return nil
	}

	ctx = p.log.WithCartKey(ctx, event.CartKey)
	if _, err := p.carts.Clear(ctx, event.CartKey); err != nil {
		p.log.Error(ctx, "failed to clear paid cart", err)
		return nil
	}
	p.log.Info(ctx, "cart cleared after payment")
	return nil
}

func parse(value []byte) (PaymentCompleted, error) {
	var event PaymentCompleted
	if err := json.Unmarshal(value, &event); err != nil {
		return PaymentCompleted{}, err
	}
	event.CartKey = strings.TrimSpace(event.CartKey)
	if event.CartKey == "" {
		return PaymentCompleted{}, ErrMissingCartKey
	}
	return event, nil
}
