package events

import (
	"context"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/messaging"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

// Publisher is the message bus the pharmacy events go out on
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// PharmacyEventPublisher publishes pharmacy events. A nil publisher is valid and publishes nothing.
type PharmacyEventPublisher struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewPharmacyEventPublisher declares the pharmacy exchange and returns a publisher for it
func NewPharmacyEventPublisher(rmq *messaging.RabbitMQ, settings messaging.BreakerSettings, m *metrics.Metrics, log *logger.Logger) (*PharmacyEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, "pharmacy-service", settings, log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, m, log), nil
}

// NewWithPublisher wraps an existing bus publisher
func NewWithPublisher(p Publisher, m *metrics.Metrics, log *logger.Logger) *PharmacyEventPublisher {
	return &PharmacyEventPublisher{
		publisher: p,
		metrics:   m,
		logger:    log,
	}
}

func (p *PharmacyEventPublisher) publish(ctx context.Context, eventType, medicine string, data any) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.metrics.PublishFailed()
		p.logger.Error().Err(err).Str("medicine", medicine).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// PublishSerialAdded publishes a serial added event
func (p *PharmacyEventPublisher) PublishSerialAdded(ctx context.Context, medicine string, unit domain.SerialUnit, stock int) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventSerialAdded, medicine, messaging.SerialAddedEvent{
		Medicine:     medicine,
		Serial:       unit.SerialID,
		Expiry:       clock.FormatDate(unit.Expiry),
		Price:        unit.Price.StringFixed(2),
		CurrentStock: stock,
	})
}

// PublishSerialRemoved publishes a serial removed event
func (p *PharmacyEventPublisher) PublishSerialRemoved(ctx context.Context, medicine, serial string, stock int) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventSerialRemoved, medicine, messaging.SerialRemovedEvent{
		Medicine:     medicine,
		Serial:       serial,
		CurrentStock: stock,
	})
}

// PublishDispensed publishes a medicine dispensed event
func (p *PharmacyEventPublisher) PublishDispensed(ctx context.Context, bill domain.Bill) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventMedicineDispensed, bill.Medicine, messaging.MedicineDispensedEvent{
		Patient:        bill.Patient,
		Medicine:       bill.Medicine,
		Serial:         bill.SerialSold,
		Price:          bill.PricePaid.StringFixed(2),
		RemainingStock: bill.RemainingStock,
		ExpiredRemoved: bill.ExpiredRemoved,
	})
}

// PublishSerialsExpired publishes one event for the units purged by a dispense
func (p *PharmacyEventPublisher) PublishSerialsExpired(ctx context.Context, medicine string, serials []string) {
	if p == nil || len(serials) == 0 {
		return
	}
	p.publish(ctx, messaging.EventSerialsExpired, medicine, messaging.SerialsExpiredEvent{
		Medicine: medicine,
		Serials:  serials,
	})
}

// PublishInventoryCleared publishes an inventory cleared event
func (p *PharmacyEventPublisher) PublishInventoryCleared(ctx context.Context, medicines int) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventInventoryCleared, "", messaging.InventoryClearedEvent{Medicines: medicines})
}
