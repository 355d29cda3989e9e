package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/pkg/config"
)

// Store drains persisted events in insertion order. Rows that fail to
// deliver stay pending and are retried on the next drain.
type Store interface {
	DrainPending(ctx context.Context, batch int32, deliver func(ctx context.Context, evt booking.Event) error) (int, error)
	PendingCount(ctx context.Context) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, evt booking.Event) error
}

// Dispatcher polls the outbox table and forwards events to the broker.
// Delivery is at-least-once: a row is only marked delivered after the
// publish succeeds, so a crash between publish and mark replays the event.
type Dispatcher struct {
	store     Store
	publisher Publisher
	cfg       config.OutboxConfig
	logger    *slog.Logger

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewDispatcher(store Store, publisher Publisher, cfg config.OutboxConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Wake requests an immediate drain. Non-blocking; a pending wake is enough.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

// Pending reports the undelivered backlog for health reporting.
func (d *Dispatcher) Pending(ctx context.Context) (int64, error) {
	return d.store.PendingCount(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
		case <-d.wake:
		}
		d.Tick(ctx)
	}
}

// Tick drains until the backlog is empty or a delivery fails. Exported so
// tests can step the dispatcher without the poll loop.
func (d *Dispatcher) Tick(ctx context.Context) {
	for {
		n, err := d.store.DrainPending(ctx, d.cfg.BatchSize, d.publisher.Publish)
		if err != nil {
			d.logger.Warn("outbox drain failed", "error", err)
			return
		}
		if n > 0 {
			d.logger.Debug("outbox events dispatched", "count", n)
		}
		if n < int(d.cfg.BatchSize) {
			return
		}
	}
}
