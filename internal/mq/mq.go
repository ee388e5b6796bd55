package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue/routing key constants.
const (
	ExchangeName = "patitas"

	RoutingReportCreated    = "report.created"
	RoutingCampaignCreated  = "campaign.created"
	RoutingLocationResolved = "location.resolved"

	QueueReportCreated    = "patitas.report_created"
	QueueCampaignCreated  = "patitas.campaign_created"
	QueueLocationResolved = "patitas.location_resolved"
)

// ── Message types ────────────────────────────────────────────────────

// ReportCreatedMsg is published by the API when a pet report is stored.
type ReportCreatedMsg struct {
	ReportID  int64     `json:"report_id"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	When      time.Time `json:"when"`
}

// CampaignCreatedMsg is published by the API when a campaign is stored.
type CampaignCreatedMsg struct {
	CampaignID int64     `json:"campaign_id"`
	Location   string    `json:"location"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	When       time.Time `json:"when"`
}

// LocationResolvedMsg is published by the backfill worker after it
// upgrades a record's location string with resolved hierarchy values.
type LocationResolvedMsg struct {
	ReportID   int64     `json:"report_id"`
	Location   string    `json:"location"`
	Department string    `json:"department"`
	Province   string    `json:"province"`
	District   string    `json:"district"`
	When       time.Time `json:"when"`
}

// ── Topology setup ───────────────────────────────────────────────────

// queues maps queue names to their routing keys.
var queues = map[string]string{
	QueueReportCreated:    RoutingReportCreated,
	QueueCampaignCreated:  RoutingCampaignCreated,
	QueueLocationResolved: RoutingLocationResolved,
}

// SetupTopology declares the exchange, all queues, and bindings.
// Safe to call multiple times (all declarations are idempotent).
func SetupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for queue, key := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// ── Publisher ────────────────────────────────────────────────────────

// Publisher publishes messages to the RabbitMQ exchange.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to RabbitMQ, sets up topology, and returns a Publisher.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := dialWithRetry(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := SetupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

// Publish serializes msg to JSON and publishes it with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         data,
	})
}

// Close closes the channel and connection.
func (p *Publisher) Close() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// ── Consumer ─────────────────────────────────────────────────────────

// Consumer consumes messages from RabbitMQ queues.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer connects to RabbitMQ, sets up topology, and returns a Consumer.
func NewConsumer(url string) (*Consumer, error) {
	conn, err := dialWithRetry(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := SetupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	// Process one message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume starts consuming from the given queue and returns a delivery channel.
func (c *Consumer) Consume(queue string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, "", false, false, false, false, nil)
}

// Close closes the channel and connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// ── Helpers ──────────────────────────────────────────────────────────

const dialAttempts = 5

// Swappable in tests.
var (
	dialAMQP = amqp.Dial
	sleep    = time.Sleep
)

// dialWithRetry attempts to connect to RabbitMQ with exponential backoff.
// The final failure returns immediately, without a trailing wait.
func dialWithRetry(url string) (*amqp.Connection, error) {
	var err error
	for i := 0; i < dialAttempts; i++ {
		var conn *amqp.Connection
		conn, err = dialAMQP(url)
		if err == nil {
			return conn, nil
		}
		if i == dialAttempts-1 {
			break
		}
		wait := time.Duration(1<<uint(i)) * time.Second
		log.Printf("[mq] connection attempt %d failed: %v, retrying in %s", i+1, err, wait)
		sleep(wait)
	}
	return nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", dialAttempts, err)
}
