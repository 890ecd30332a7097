// Package publisher implements the Execution Publisher (C3): one persistent
// AMQP 0-9-1 connection and channel, publishing ExecutionNotifications to a
// durable queue. The "own one connection, reconnect in the background" shape
// mirrors the teacher's NewAzureQueueToolCallPhaseMgr (which owns a single
// long-lived Azure Storage Queue client and a background processor
// goroutine), adapted to AMQP's connection/channel model and the spec's
// durable default-exchange publish contract instead of Azure Queue's REST
// semantics.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExecutionNotification is the queue payload. It intentionally omits the
// tool-call body; the Executor retrieves that separately via the Context
// Store's fetch-and-consume endpoint.
type ExecutionNotification struct {
	RequestID   string `json:"requestId"`
	Service     string `json:"service"`
	Operation   string `json:"operation"`
	CallbackURL string `json:"callbackUrl"`
	TenantID    string `json:"tenantId"`
	UserID      string `json:"userId"`
}

const reconnectInterval = 5 * time.Second

// Publisher owns the gateway's single connection to the broker.
type Publisher struct {
	url       string
	queueName string
	logger    *slog.Logger

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	done chan struct{}
}

// New dials url and declares the durable queue named queueName, then starts
// a background goroutine that reconnects automatically (reconnect interval
// 5000ms per spec.md §4.3) if the connection drops.
func New(url, queueName string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{url: url, queueName: queueName, logger: logger, done: make(chan struct{})}
	if err := p.connect(); err != nil {
		// Startup still succeeds; publish() will fail until reconnect catches up.
		logger.Warn("initial broker connection failed, will retry in background", slog.Any("error", err))
	}
	go p.reconnectLoop()
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(p.queueName, true /*durable*/, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn, p.ch = conn, ch
	p.mu.Unlock()
	return nil
}

// reconnectLoop watches the connection's close notification and redials
// every reconnectInterval until Close is called.
func (p *Publisher) reconnectLoop() {
	for {
		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()

		var closeNotify chan *amqp.Error
		if conn != nil {
			closeNotify = conn.NotifyClose(make(chan *amqp.Error, 1))
		}

		select {
		case <-p.done:
			return
		case err := <-closeNotify: // closeNotify is nil (never ready) if conn is nil; the timer case retries then
			if err != nil {
				p.logger.Warn("broker connection closed, reconnecting", slog.Any("error", err))
			}
		case <-time.After(reconnectInterval):
			if conn != nil && !conn.IsClosed() {
				continue // still healthy; just re-check on the next tick
			}
		}

		select {
		case <-p.done:
			return
		default:
		}

		if err := p.connect(); err != nil {
			p.logger.Warn("reconnect attempt failed", slog.Any("error", err))
			time.Sleep(reconnectInterval)
		}
	}
}

// Publish serializes notification as JSON and submits it to the default
// exchange with routing key == queue name, marked persistent. It returns
// false (never panics) if the channel is missing or closed; the caller
// (mediator) must then fail the request with EXECUTOR_UNAVAILABLE.
func (p *Publisher) Publish(ctx context.Context, notification ExecutionNotification) bool {
	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()

	if ch == nil || ch.IsClosed() {
		p.logger.Error("publish failed: no open channel", slog.String("requestId", notification.RequestID))
		return false
	}

	body, err := json.Marshal(notification)
	if err != nil {
		p.logger.Error("publish failed: marshal error", slog.Any("error", err))
		return false
	}

	err = ch.PublishWithContext(ctx, "" /*default exchange*/, p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.logger.Error("publish failed", slog.String("requestId", notification.RequestID), slog.Any("error", err))
		return false
	}
	return true
}

// Close closes the channel then the connection, tolerating a process that
// never successfully connected. Double-close is tolerated.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return // already closed
	default:
		close(p.done)
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
