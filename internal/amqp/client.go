// Package amqp publishes ledger events and closing reports to RabbitMQ and
// consumes them in the worker.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"faturas/internal/core"
	"faturas/internal/lifecycle"
	"faturas/internal/log"
	"faturas/internal/report"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect dials and declares the topology. Callers hold c.mu.
func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn, c.channel = conn, ch
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Direct exchange: the routing key is the queue name.
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()
	return c.connect()
}

var _ lifecycle.EventPublisher = (*Client)(nil)

// PublishInvoiceClosed announces that ev.InvoiceID was closed and
// ev.SuccessorID opened in its place.
func (c *Client) PublishInvoiceClosed(ctx context.Context, ev lifecycle.ClosedEvent) error {
	body, err := MessageFromClosedEvent(ev).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeInvoiceClosed, ev.InvoiceID, body); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Published invoice closed message",
		log.FieldInvoiceID, ev.InvoiceID,
		log.FieldSuccessorID, ev.SuccessorID,
		log.FieldReportRef, ev.ReportRef)
	return nil
}

// PublishReport queues a closing report for rendering and returns the
// message id.
func (c *Client) PublishReport(ctx context.Context, r report.Report) (string, error) {
	body, err := json.Marshal(ReportMessage{Report: r, Timestamp: time.Now()})
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	id := core.NewID()
	if err := c.publish(ctx, TypeReport, id, body); err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "Published closing report",
		log.FieldInvoiceID, r.Invoice.ID,
		log.FieldMessageID, id)
	return id, nil
}

func (c *Client) publish(ctx context.Context, msgType, messageID string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", msgType, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		if err := c.reconnect(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		c.mu.Lock()
		ch = c.channel
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Type:         msgType,
		MessageId:    messageID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// Exporter adapts the client to report.Exporter: exporting means handing
// the report to the worker.
type Exporter struct {
	Client *Client
}

func (e Exporter) Export(ctx context.Context, r report.Report) (string, error) {
	return e.Client.PublishReport(ctx, r)
}

// Handler processes consumed messages. Returning an error requeues the
// delivery.
type Handler interface {
	HandleInvoiceClosed(ctx context.Context, msg *InvoiceClosedMessage) error
	HandleReport(ctx context.Context, msg *ReportMessage) error
}

// Consume delivers messages to h until ctx is done, reconnecting with
// exponential backoff when the broker goes away.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Consumer lost connection, retrying",
			log.FieldError, err.Error(), "backoff", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.reconnect(); err != nil {
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, h Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}
			c.dispatch(ctx, d, h)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, d amqp091.Delivery, h Handler) {
	var err error
	switch d.Type {
	case TypeInvoiceClosed:
		var msg *InvoiceClosedMessage
		if msg, err = InvoiceClosedMessageFromJSON(d.Body); err == nil {
			err = h.HandleInvoiceClosed(ctx, msg)
		} else {
			c.reject(ctx, d, err)
			return
		}
	case TypeReport:
		var msg *ReportMessage
		if msg, err = ReportMessageFromJSON(d.Body); err == nil {
			err = h.HandleReport(ctx, msg)
		} else {
			c.reject(ctx, d, err)
			return
		}
	default:
		c.reject(ctx, d, fmt.Errorf("unknown message type %q", d.Type))
		return
	}

	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message",
			log.FieldMessageID, d.MessageId, log.FieldError, err.Error())
		d.Nack(false, true)
		return
	}
	d.Ack(false)
	c.logger.InfoContext(ctx, "Processed message", log.FieldMessageID, d.MessageId, "type", d.Type)
}

// reject drops a message that can never be processed.
func (c *Client) reject(ctx context.Context, d amqp091.Delivery, err error) {
	c.logger.ErrorContext(ctx, "Rejecting message",
		log.FieldMessageID, d.MessageId, log.FieldError, err.Error())
	d.Nack(false, false)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
