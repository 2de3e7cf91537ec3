package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/medflow/hospital-backend/pkg/logger"
)

// Channel is the subset of *amqp.Channel the publisher needs
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// BreakerSettings configures the publish circuit breaker
type BreakerSettings struct {
	// Failures is the consecutive failures that open the circuit
	Failures uint32
	// Timeout is how long the circuit stays open before probing again
	Timeout time.Duration
}

// Publisher publishes events to a topic exchange behind a circuit breaker.
// While the circuit is open, publishes fail fast with gobreaker.ErrOpenState.
type Publisher struct {
	channel  Channel
	exchange string
	source   string
	breaker  *gobreaker.CircuitBreaker
	logger   *logger.Logger
}

// NewPublisher declares the exchange and returns a publisher bound to it
func NewPublisher(rmq *RabbitMQ, exchange, source string, settings BreakerSettings, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return NewChannelPublisher(rmq.Channel(), exchange, source, settings, log), nil
}

// NewChannelPublisher builds a publisher over an already prepared channel
func NewChannelPublisher(ch Channel, exchange, source string, settings BreakerSettings, log *logger.Logger) *Publisher {
	failures := settings.Failures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "publish:" + exchange,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish circuit state changed")
		},
	})

	return &Publisher{
		channel:  ch,
		exchange: exchange,
		source:   source,
		breaker:  breaker,
		logger:   log,
	}
}

// Publish wraps data in an Event and publishes it with the event type as routing key
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	correlationID := getCorrelationID(ctx)

	event, err := NewEvent(eventType, p.source, correlationID, data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.channel.PublishWithContext(ctx,
			p.exchange, // exchange
			eventType,  // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				CorrelationId: correlationID,
				MessageId:     event.ID,
				Body:          body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", correlationID).
		Msg("event published")

	return nil
}

// State reports the publish circuit state
func (p *Publisher) State() string {
	return p.breaker.State().String()
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
