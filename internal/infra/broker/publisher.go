package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/infra/supervisor"
	"homecare-booking/internal/pkg/config"
	"homecare-booking/internal/pkg/errs"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the slice of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type Dialer func(url string) (Connection, error)

func amqpDial(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	return c.conn.Channel()
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

// Publisher delivers one message per committed transition to a topic
// exchange. Connection management is serialized through the supervisor;
// payload sends run concurrently once connected. A publish while the broker
// is unreachable fails fast with ErrBrokerUnavailable instead of hanging.
type Publisher struct {
	cfg    config.BrokerConfig
	dial   Dialer
	sup    *supervisor.Supervisor
	logger *slog.Logger

	mu       sync.Mutex
	conn     Connection
	ch       Channel
	declared map[string]struct{}
}

func NewPublisher(cfg config.BrokerConfig, backoff config.BackoffConfig, logger *slog.Logger) *Publisher {
	return newPublisher(cfg, backoff, logger, amqpDial)
}

func NewPublisherWithDialer(cfg config.BrokerConfig, backoff config.BackoffConfig, logger *slog.Logger, dial Dialer) *Publisher {
	return newPublisher(cfg, backoff, logger, dial)
}

func newPublisher(cfg config.BrokerConfig, backoff config.BackoffConfig, logger *slog.Logger, dial Dialer) *Publisher {
	p := &Publisher{
		cfg:      cfg,
		dial:     dial,
		logger:   logger,
		declared: make(map[string]struct{}),
	}
	p.sup = supervisor.New("broker", p.openConnection, backoff, logger)
	return p
}

func (p *Publisher) Supervisor() *supervisor.Supervisor {
	return p.sup
}

func (p *Publisher) Healthy() bool {
	return p.sup.Healthy()
}

// Publish connects lazily on first use and sends the envelope with a bounded
// timeout. Failures surface as ErrBrokerUnavailable so the caller can decide
// whether to retry; the already-committed state change is never undone.
func (p *Publisher) Publish(ctx context.Context, evt booking.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	if err := p.sup.EnsureConnected(ctx); err != nil {
		return errs.Mark(err, errs.ErrBrokerUnavailable)
	}

	env := NewEnvelope(evt, p.cfg.Origin)
	body, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(err, "marshal event envelope")
	}

	exchange := ExchangeFor(evt.Name, p.cfg.ExchangeSuffix)

	p.mu.Lock()
	ch := p.ch
	if ch == nil {
		p.mu.Unlock()
		return errs.Mark(errs.New("broker channel not open"), errs.ErrBrokerUnavailable)
	}
	if declareErr := p.declareExchangeLocked(ch, exchange); declareErr != nil {
		p.mu.Unlock()
		p.sup.NotifyDown(declareErr)
		return errs.Mark(declareErr, errs.ErrBrokerUnavailable)
	}
	p.mu.Unlock()

	if err := ch.PublishWithContext(ctx, exchange, evt.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}); err != nil {
		p.sup.NotifyDown(err)
		return errs.Mark(err, errs.ErrBrokerUnavailable)
	}

	p.logger.Debug("event published", "exchange", exchange, "routing_key", evt.Name, "booking_id", evt.BookingID)
	return nil
}

func (p *Publisher) Close() error {
	p.sup.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// openConnection is the supervisor's single connect path.
func (p *Publisher) openConnection(_ context.Context) error {
	conn, err := p.dial(p.cfg.URL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.declared = make(map[string]struct{})
	p.mu.Unlock()

	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		amqpErr := <-closeCh
		if amqpErr != nil {
			p.sup.NotifyDown(amqpErr)
		}
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
			p.ch = nil
		}
		p.mu.Unlock()
	}()

	return nil
}

// declareExchanges are idempotent but avoid a broker round-trip per publish.
func (p *Publisher) declareExchangeLocked(ch Channel, exchange string) error {
	if _, ok := p.declared[exchange]; ok {
		return nil
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	p.declared[exchange] = struct{}{}
	return nil
}
