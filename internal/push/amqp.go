package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"tableside/internal/logger"
)

const eventsExchange = "restaurant_events"

// AMQPSubscriber consumes backend events from the restaurant_events topic
// exchange through a per-station queue.
type AMQPSubscriber struct {
	url       string
	queueName string
	logger    *logger.Logger
	conn      *amqp091.Connection
	channel   *amqp091.Channel
}

// NewAMQPSubscriber connects to RabbitMQ with retry and declares the
// events exchange. queueName should be unique per station instance.
func NewAMQPSubscriber(url, queueName string, log *logger.Logger) (*AMQPSubscriber, error) {
	s := &AMQPSubscriber{
		url:       url,
		queueName: queueName,
		logger:    log,
	}
	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	return s, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (s *AMQPSubscriber) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		s.conn, err = amqp091.Dial(s.url)
		if err == nil {
			s.channel, err = s.conn.Channel()
			if err == nil {
				if setupErr := s.setupTopology(); setupErr != nil {
					s.logger.Error("push_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					s.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				s.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			s.logger.Error("push_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

func (s *AMQPSubscriber) setupTopology() error {
	err := s.channel.ExchangeDeclare(
		eventsExchange, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", eventsExchange, err)
	}
	return nil
}

// Subscribe binds a station queue to the requested event types and
// dispatches deliveries to the handler until the context is cancelled.
func (s *AMQPSubscriber) Subscribe(ctx context.Context, eventTypes []string, handler Handler) error {
	if s.conn == nil || s.conn.IsClosed() {
		if err := s.connect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	queueName := fmt.Sprintf("%s-%s", s.queueName, strings.Join(eventTypes, "-"))
	queue, err := s.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	for _, eventType := range eventTypes {
		if err := s.channel.QueueBind(queue.Name, eventType, eventsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", queue.Name, eventType, err)
		}
	}

	msgs, err := s.channel.Consume(
		queue.Name,  // queue
		s.queueName, // consumer
		false,       // auto-ack (we'll ack manually)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	s.logger.Info("push_subscribed", fmt.Sprintf("Subscribed to %d event types", len(eventTypes)), "", map[string]interface{}{
		"queue":  queue.Name,
		"events": strings.Join(eventTypes, ","),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("push_stopped", "Subscription stopped by context", "", nil)
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				s.logger.Error("push_channel_closed", "Delivery channel closed, attempting to reconnect", "", nil, nil)
				if err := s.reconnect(); err != nil {
					return fmt.Errorf("failed to reconnect after channel closed: %w", err)
				}
				return s.Subscribe(ctx, eventTypes, handler)
			}
			s.dispatch(d, handler)
		}
	}
}

func (s *AMQPSubscriber) dispatch(d amqp091.Delivery, handler Handler) {
	var event Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		s.logger.Error("push_decode_failed", "Failed to decode event, dropping", "", err, map[string]interface{}{
			"routing_key": d.RoutingKey,
		})
		// Malformed events are never redelivered.
		if nackErr := d.Nack(false, false); nackErr != nil {
			s.logger.Error("push_nack_failed", "Failed to nack event", "", nackErr, nil)
		}
		return
	}

	if event.Type == "" {
		event.Type = d.RoutingKey
	}

	handler(event)

	if ackErr := d.Ack(false); ackErr != nil {
		s.logger.Error("push_ack_failed", "Failed to ack event", "", ackErr, nil)
	}
}

// RegisterDevice announces the station on the events exchange.
func (s *AMQPSubscriber) RegisterDevice(role string, tableNumber int) error {
	payload, err := json.Marshal(DeviceRegistration{Role: role, TableNumber: tableNumber})
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}

	body, err := json.Marshal(Event{Type: "register_device", Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = s.channel.PublishWithContext(
		ctx,
		eventsExchange,    // exchange
		"register_device", // routing key
		false,             // mandatory
		false,             // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish registration: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *AMQPSubscriber) Close() error {
	return s.close()
}

func (s *AMQPSubscriber) close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *AMQPSubscriber) reconnect() error {
	s.close()
	return s.connect()
}
