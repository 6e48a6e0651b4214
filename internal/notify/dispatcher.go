package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/metrics"
	"github.com/nmoreno/storefront-checkout/pkg/notifier"
)

type confirmationSender interface {
	SendOrderConfirmation(ctx context.Context, confirmation notifier.OrderConfirmation) error
}

// Config tunes the dispatcher queue and retry policy.
type Config struct {
	QueueSize      int
	MaxAttempts    uint64
	InitialBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	return c
}

// Dispatcher delivers order confirmations from a bounded in-process queue,
// detached from the request that produced them. Delivery failures retry with
// exponential backoff; a message that exhausts its attempts is dropped with
// a log line, never surfaced to the buyer.
type Dispatcher struct {
	queue  chan notifier.OrderConfirmation
	sender confirmationSender
	logg   *logger.Logger
	obs    *metrics.FinalizeMetrics
	cfg    Config
}

// NewDispatcher builds the confirmation dispatcher.
func NewDispatcher(sender confirmationSender, logg *logger.Logger, obs *metrics.FinalizeMetrics, cfg Config) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("confirmation sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	return &Dispatcher{
		queue:  make(chan notifier.OrderConfirmation, cfg.QueueSize),
		sender: sender,
		logg:   logg,
		obs:    obs,
		cfg:    cfg,
	}, nil
}

// Enqueue hands a confirmation to the queue without blocking. Returns false
// when the queue is full; the message is dropped and logged.
func (d *Dispatcher) Enqueue(confirmation notifier.OrderConfirmation) bool {
	select {
	case d.queue <- confirmation:
		d.obs.SetQueueDepth(len(d.queue))
		return true
	default:
		d.logg.Warn(context.Background(),
			fmt.Sprintf("confirmation queue full, dropping order %s", confirmation.OrderID))
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case confirmation := <-d.queue:
			d.obs.SetQueueDepth(len(d.queue))
			d.deliver(ctx, confirmation)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, confirmation notifier.OrderConfirmation) {
	ctx = d.logg.WithOrderID(ctx, confirmation.OrderID)

	backoff := retry.WithMaxRetries(d.cfg.MaxAttempts, retry.NewExponential(d.cfg.InitialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := d.sender.SendOrderConfirmation(ctx, confirmation); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logg.Error(ctx, "order confirmation delivery abandoned", err)
		return
	}
	d.logg.Info(ctx, "order confirmation delivered")
}
