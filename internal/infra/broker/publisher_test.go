//go:build unit

package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"homecare-booking/internal/domain/booking"
	"homecare-booking/internal/infra/broker"
	"homecare-booking/internal/pkg/config"
	"homecare-booking/internal/pkg/errs"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMsg struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	published  []publishedMsg
	publishErr error
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declared = append(c.declared, name+"/"+kind)
	_ = durable
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMsg{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

type fakeConnection struct {
	ch      *fakeChannel
	closeCh chan *amqp.Error
}

func (c *fakeConnection) Channel() (broker.Channel, error) { return c.ch, nil }

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.closeCh = receiver
	return receiver
}

func (c *fakeConnection) Close() error { return nil }

func testBrokerConfig() config.BrokerConfig {
	return config.BrokerConfig{
		URL:            "amqp://test",
		ExchangeSuffix: "events",
		PublishTimeout: time.Second,
		Origin:         "booking-service",
	}
}

func testBackoff() config.BackoffConfig {
	return config.BackoffConfig{
		Base:       time.Millisecond,
		Max:        100 * time.Millisecond,
		Jitter:     false,
		MaxRetries: 2,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() booking.Event {
	return booking.Event{
		Name:       booking.EventCancelled,
		BookingID:  uuid.New(),
		ClientID:   uuid.New(),
		Status:     booking.StatusCancelled,
		OccurredAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Payload:    map[string]any{"refund_cents": int64(678)},
	}
}

func TestPublish(t *testing.T) {
	t.Run("publishes a persistent JSON envelope", func(t *testing.T) {
		ch := &fakeChannel{}
		conn := &fakeConnection{ch: ch}
		p := broker.NewPublisherWithDialer(testBrokerConfig(), testBackoff(), discardLogger(),
			func(_ string) (broker.Connection, error) { return conn, nil })
		defer p.Close()

		evt := testEvent()
		require.NoError(t, p.Publish(context.Background(), evt))

		require.Len(t, ch.published, 1)
		sent := ch.published[0]
		assert.Equal(t, "booking.events", sent.exchange)
		assert.Equal(t, booking.EventCancelled, sent.key)
		assert.Equal(t, uint8(amqp.Persistent), sent.msg.DeliveryMode)
		assert.Equal(t, "application/json", sent.msg.ContentType)

		var env broker.Envelope
		require.NoError(t, json.Unmarshal(sent.msg.Body, &env))
		assert.Equal(t, booking.EventCancelled, env.Event)
		assert.Equal(t, evt.BookingID.String(), env.BookingID)
		assert.Equal(t, "cancelled", env.Status)
		assert.Equal(t, "booking-service", env.Origin)
		assert.Equal(t, "2025-06-01T10:00:00Z", env.Timestamp)
	})

	t.Run("declares each exchange once", func(t *testing.T) {
		ch := &fakeChannel{}
		conn := &fakeConnection{ch: ch}
		p := broker.NewPublisherWithDialer(testBrokerConfig(), testBackoff(), discardLogger(),
			func(_ string) (broker.Connection, error) { return conn, nil })
		defer p.Close()

		require.NoError(t, p.Publish(context.Background(), testEvent()))
		require.NoError(t, p.Publish(context.Background(), testEvent()))

		assert.Equal(t, []string{"booking.events/topic"}, ch.declared)
		assert.Len(t, ch.published, 2)
	})

	t.Run("fails fast when the broker is unreachable", func(t *testing.T) {
		p := broker.NewPublisherWithDialer(testBrokerConfig(), testBackoff(), discardLogger(),
			func(_ string) (broker.Connection, error) { return nil, errors.New("refused") })
		defer p.Close()

		err := p.Publish(context.Background(), testEvent())
		require.True(t, errs.Is(err, errs.ErrBrokerUnavailable))
		assert.False(t, p.Healthy())
	})

	t.Run("publish failure marks the connection down", func(t *testing.T) {
		ch := &fakeChannel{}
		conn := &fakeConnection{ch: ch}
		p := broker.NewPublisherWithDialer(testBrokerConfig(), testBackoff(), discardLogger(),
			func(_ string) (broker.Connection, error) { return conn, nil })
		defer p.Close()

		require.NoError(t, p.Publish(context.Background(), testEvent()))
		require.True(t, p.Healthy())

		ch.mu.Lock()
		ch.publishErr = errors.New("channel gone")
		ch.mu.Unlock()

		err := p.Publish(context.Background(), testEvent())
		require.True(t, errs.Is(err, errs.ErrBrokerUnavailable))
		assert.False(t, p.Healthy())

		// A healthy dial path recovers on the next publish.
		ch.mu.Lock()
		ch.publishErr = nil
		ch.mu.Unlock()

		require.NoError(t, p.Publish(context.Background(), testEvent()))
		assert.True(t, p.Healthy())
	})

	t.Run("broker close notification triggers reconnect", func(t *testing.T) {
		ch := &fakeChannel{}
		first := &fakeConnection{ch: ch}
		second := &fakeConnection{ch: ch}
		conns := []*fakeConnection{first, second}
		var dials int

		p := broker.NewPublisherWithDialer(testBrokerConfig(), testBackoff(), discardLogger(),
			func(_ string) (broker.Connection, error) {
				conn := conns[dials]
				dials++
				return conn, nil
			})
		defer p.Close()

		require.NoError(t, p.Publish(context.Background(), testEvent()))
		require.NotNil(t, first.closeCh)

		first.closeCh <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "server shutdown"}

		require.Eventually(t, func() bool {
			return p.Publish(context.Background(), testEvent()) == nil
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, 2, dials)
	})
}

func TestExchangeFor(t *testing.T) {
	assert.Equal(t, "booking.events", broker.ExchangeFor("booking.created", "events"))
	assert.Equal(t, "misc.events", broker.ExchangeFor("heartbeat", "events"))
}
