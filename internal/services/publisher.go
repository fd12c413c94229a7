package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/desertthunder/chordpaper/internal/metrics"
	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// Channel is the subset of [amqp.Channel] used to publish jobs.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a fresh channel to the broker, along with the connection to close with it (nil if none).
type Dialer func() (Channel, io.Closer, error)

// AMQPPublisher publishes split jobs to a durable RabbitMQ queue.
type AMQPPublisher struct {
	queue  string
	dial   Dialer
	logger *log.Logger

	mu      sync.Mutex
	channel Channel
	conn    io.Closer
}

// DialAMQP connects to the broker at url and declares queue.
func DialAMQP(url, queue string, logger *log.Logger) (*AMQPPublisher, error) {
	dial := func() (Channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to open channel: %w", err)
		}
		return ch, conn, nil
	}

	return NewAMQPPublisher(dial, queue, logger)
}

// NewAMQPPublisher opens a channel with dial and declares queue on it.
func NewAMQPPublisher(dial Dialer, queue string, logger *log.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &AMQPPublisher{queue: queue, dial: dial, logger: logger}
	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *AMQPPublisher) connect() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		if conn != nil {
			conn.Close()
		}
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}

	p.channel = ch
	p.conn = conn
	return nil
}

// Publish sends one split job. A publish is attempted once; when the channel was closed by the broker it is
// reopened for the next job.
func (p *AMQPPublisher) Publish(ctx context.Context, job models.SplitJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPublishFailed, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         StartJobType,
		MessageId:    shared.GenerateID(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, "", p.queue, true, false, msg)
	metrics.RecordSplitJob("amqp", err == nil)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.reconnect()
		}
		return fmt.Errorf("%w: %w", shared.ErrPublishFailed, err)
	}

	p.logger.Debug("published split job", "queue", p.queue, "tracklist", job.TrackListID, "track", job.TrackID)
	return nil
}

func (p *AMQPPublisher) reconnect() {
	p.closeLocked()
	if err := p.connect(); err != nil {
		p.logger.Error("unable to reconnect to broker", "queue", p.queue, "error", err)
	}
}

// Close closes the channel and its connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.channel, p.conn = closedChannel{}, nil
	return errors.Join(errs...)
}

// closedChannel fails every publish after Close or a failed reconnect.
type closedChannel struct{}

func (closedChannel) QueueDeclare(string, bool, bool, bool, bool, amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{}, amqp.ErrClosed
}

func (closedChannel) PublishWithContext(context.Context, string, string, bool, bool, amqp.Publishing) error {
	return amqp.ErrClosed
}

func (closedChannel) Close() error { return nil }

// LogPublisher logs split jobs instead of sending them anywhere.
type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher creates a [LogPublisher].
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, job models.SplitJob) error {
	p.logger.Info("split job requested (no broker configured)", "tracklist", job.TrackListID, "track", job.TrackID)
	metrics.RecordSplitJob("log", true)
	return nil
}
