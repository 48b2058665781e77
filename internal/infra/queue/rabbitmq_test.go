package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ig-comment-bot/internal/domain"
)

type fakeChannel struct {
	closed     bool
	publishErr error
	published  []amqp.Publishing
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type fakeBroker struct {
	channels []*fakeChannel
	opens    int
	openErr  error
}

func (b *fakeBroker) open() (publishChannel, func() error, error) {
	if b.openErr != nil {
		return nil, nil, b.openErr
	}
	ch := b.channels[b.opens]
	b.opens++
	return ch, func() error { return nil }, nil
}

func event() domain.ActivityEvent {
	return domain.ActivityEvent{ID: "ev1", CommentID: "c1", ProcessedAt: time.Unix(1000, 0)}
}

func TestPublishReopensClosedChannel(t *testing.T) {
	broker := &fakeBroker{channels: []*fakeChannel{{publishErr: amqp.ErrClosed}, {}}}
	p, err := newPublisher("activity", broker.open)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := p.Publish(context.Background(), event()); err != nil {
		t.Fatalf("публикация после переоткрытия: %v", err)
	}
	if broker.opens != 2 {
		t.Fatalf("ожидали повторное открытие канала, открытий: %d", broker.opens)
	}
	if len(broker.channels[1].published) != 1 || broker.channels[1].published[0].MessageId != "ev1" {
		t.Fatalf("событие должно уйти в новый канал: %+v", broker.channels[1].published)
	}
}

func TestPublishReopensAfterChannelClosedByBroker(t *testing.T) {
	broker := &fakeBroker{channels: []*fakeChannel{{}, {}}}
	p, err := newPublisher("activity", broker.open)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	broker.channels[0].closed = true
	if err := p.Publish(context.Background(), event()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if broker.opens != 2 || len(broker.channels[1].published) != 1 {
		t.Fatalf("ожидали публикацию в новый канал: opens=%d", broker.opens)
	}
}

func TestPublishReturnsErrorWhenBrokerDown(t *testing.T) {
	broker := &fakeBroker{channels: []*fakeChannel{{publishErr: amqp.ErrClosed}}}
	p, err := newPublisher("activity", broker.open)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	broker.openErr = errors.New("dial rabbitmq: connection refused")
	if err := p.Publish(context.Background(), event()); err == nil {
		t.Fatal("ожидали ошибку при недоступном брокере")
	}
}
