package events

import (
	"context"

	"github.com/medflow/hospital-backend/internal/appointment/domain"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/messaging"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

// Publisher is the message bus appointment events go out on
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// AppointmentEventPublisher publishes scheduler events. A nil publisher is valid and publishes nothing.
type AppointmentEventPublisher struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewAppointmentEventPublisher declares the appointment exchange and returns a publisher for it
func NewAppointmentEventPublisher(rmq *messaging.RabbitMQ, settings messaging.BreakerSettings, m *metrics.Metrics, log *logger.Logger) (*AppointmentEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAppointmentEvents, "appointment-service", settings, log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, m, log), nil
}

// NewWithPublisher wraps an existing bus publisher
func NewWithPublisher(p Publisher, m *metrics.Metrics, log *logger.Logger) *AppointmentEventPublisher {
	return &AppointmentEventPublisher{
		publisher: p,
		metrics:   m,
		logger:    log,
	}
}

func (p *AppointmentEventPublisher) publish(ctx context.Context, eventType string, data any) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.metrics.PublishFailed()
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// PublishBooked publishes an appointment booked event
func (p *AppointmentEventPublisher) PublishBooked(ctx context.Context, a domain.Appointment) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventAppointmentBooked, messaging.AppointmentBookedEvent{
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Hour:      a.Hour,
	})
}

// PublishVisitRecorded publishes a visit recorded event
func (p *AppointmentEventPublisher) PublishVisitRecorded(ctx context.Context, v domain.VisitRecord) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventVisitRecorded, messaging.VisitRecordedEvent{
		DoctorID:  v.DoctorID,
		PatientID: v.PatientID,
		Hour:      v.Visit.Time,
		Medicine:  v.Visit.Medicine,
		Date:      v.Visit.Date,
	})
}
