package consumers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/errors"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/messaging"
)

// Stocker is the part of the pharmacy service deliveries feed into
type Stocker interface {
	AddSerial(ctx context.Context, in service.AddSerialInput) (domain.Medicine, domain.SerialUnit, error)
}

// ReceiptConsumer stocks serial units announced by supplier delivery events
type ReceiptConsumer struct {
	consumer *messaging.Consumer
	stocker  Stocker
	logger   *logger.Logger
}

// NewReceiptConsumer binds the pharmacy delivery queue to the supply exchange
func NewReceiptConsumer(rmq *messaging.RabbitMQ, stocker Stocker, log *logger.Logger) (*ReceiptConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "pharmacy-service.deliveries", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSupplyEvents, messaging.EventDeliveryReceived); err != nil {
		return nil, err
	}

	c := &ReceiptConsumer{
		consumer: consumer,
		stocker:  stocker,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventDeliveryReceived, c.HandleDelivery)

	return c, nil
}

// Start starts consuming messages
func (c *ReceiptConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// HandleDelivery stocks one delivered unit. Redelivery of an already stocked
// serial is acknowledged; malformed deliveries are dead-lettered.
func (c *ReceiptConsumer) HandleDelivery(ctx context.Context, event *messaging.Event) error {
	var data messaging.DeliveryReceivedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return messaging.Permanent(err)
	}

	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return messaging.Permanent(errors.InvalidInput("price", "must be a decimal number"))
	}

	log := c.logger.WithMedicine(data.Name).WithCorrelationID(event.CorrelationID)
	log.Info().Str("serial", data.Serial).Msg("received delivery")

	_, _, err = c.stocker.AddSerial(ctx, service.AddSerialInput{
		Name:   data.Name,
		Serial: data.Serial,
		Expiry: data.Expiry,
		Price:  price,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrConflict):
		log.Debug().Str("serial", data.Serial).Msg("delivery already stocked")
		return nil
	case errors.Is(err, errors.ErrValidation):
		return messaging.Permanent(err)
	default:
		return err
	}
}
