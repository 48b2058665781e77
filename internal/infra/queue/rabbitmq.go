package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

// publishChannel — часть *amqp.Channel, нужная публикатору.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// openFunc открывает канал с объявленной очередью и возвращает функцию закрытия соединения.
type openFunc func() (publishChannel, func() error, error)

// ActivityPublisher публикует события обработки комментариев в очередь RabbitMQ.
// Закрытый канал переоткрывается при следующей публикации.
type ActivityPublisher struct {
	mu        sync.Mutex
	open      openFunc
	ch        publishChannel
	closeConn func() error
	queue     string
}

var _ domain.ActivitySink = (*ActivityPublisher)(nil)

// NewActivityPublisher подключается к брокеру и объявляет durable-очередь.
func NewActivityPublisher(amqpURL, queue string) (*ActivityPublisher, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	return newPublisher(queue, func() (publishChannel, func() error, error) {
		return dial(amqpURL, queue)
	})
}

func newPublisher(queue string, open openFunc) (*ActivityPublisher, error) {
	p := &ActivityPublisher{open: open, queue: queue}
	if err := p.reopenLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func dial(amqpURL, queue string) (publishChannel, func() error, error) {
	start := time.Now()
	conn, err := amqp.Dial(amqpURL)
	metrics.ObserveNetworkRequest("rabbitmq", "dial", queue, start, err)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	return ch, conn.Close, nil
}

// Publish отправляет событие в очередь в виде JSON.
func (p *ActivityPublisher) Publish(ctx context.Context, event domain.ActivityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.ProcessedAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.reopenLocked(); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}
	err = p.publishLocked(ctx, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if rerr := p.reopenLocked(); rerr != nil {
			return fmt.Errorf("publish event: %w", rerr)
		}
		err = p.publishLocked(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *ActivityPublisher) publishLocked(ctx context.Context, msg amqp.Publishing) error {
	start := time.Now()
	err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	metrics.ObserveNetworkRequest("rabbitmq", "publish", p.queue, start, err)
	return err
}

func (p *ActivityPublisher) reopenLocked() error {
	p.closeLocked()
	ch, closeConn, err := p.open()
	if err != nil {
		return err
	}
	p.ch = ch
	p.closeConn = closeConn
	return nil
}

func (p *ActivityPublisher) closeLocked() error {
	var errs []error
	if p.ch != nil && !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if p.closeConn != nil {
		errs = append(errs, p.closeConn())
	}
	p.ch = nil
	p.closeConn = nil
	return errors.Join(errs...)
}

// Close закрывает канал и соединение.
func (p *ActivityPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}
