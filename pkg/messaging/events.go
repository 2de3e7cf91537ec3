package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Pharmacy events
	EventSerialAdded       = "pharmacy.serial.added"
	EventSerialRemoved     = "pharmacy.serial.removed"
	EventMedicineDispensed = "pharmacy.medicine.dispensed"
	EventSerialsExpired    = "pharmacy.serial.expired"
	EventInventoryCleared  = "pharmacy.inventory.cleared"

	// Appointment events
	EventAppointmentBooked = "appointment.booked"
	EventVisitRecorded     = "appointment.visit.recorded"

	// Supplier events consumed by the pharmacy
	EventDeliveryReceived = "supply.delivery.received"
)

// Exchange names
const (
	ExchangePharmacyEvents    = "pharmacy.events"
	ExchangeAppointmentEvents = "appointment.events"
	ExchangeSupplyEvents      = "supply.events"
)

// Event is the envelope every message travels in
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Pharmacy Events

// SerialAddedEvent is published when a serial unit is stocked
type SerialAddedEvent struct {
	Medicine     string `json:"medicine"`
	Serial       string `json:"serial"`
	Expiry       string `json:"expiry"`
	Price        string `json:"price"`
	CurrentStock int    `json:"current_stock"`
}

// SerialRemovedEvent is published when a serial unit is withdrawn by hand
type SerialRemovedEvent struct {
	Medicine     string `json:"medicine"`
	Serial       string `json:"serial"`
	CurrentStock int    `json:"current_stock"`
}

// MedicineDispensedEvent is published after a bill commits
type MedicineDispensedEvent struct {
	Patient        string `json:"patient"`
	Medicine       string `json:"medicine"`
	Serial         string `json:"serial"`
	Price          string `json:"price"`
	RemainingStock int    `json:"remaining_stock"`
	ExpiredRemoved int    `json:"expired_removed"`
}

// SerialsExpiredEvent is published once per dispense that purged expired units
type SerialsExpiredEvent struct {
	Medicine string   `json:"medicine"`
	Serials  []string `json:"serials"`
}

// InventoryClearedEvent is published when the whole inventory is reset
type InventoryClearedEvent struct {
	Medicines int `json:"medicines"`
}

// DeliveryReceivedEvent is a supplier delivery of one serial unit
type DeliveryReceivedEvent struct {
	Name   string `json:"name"`
	Serial string `json:"serial"`
	Expiry string `json:"expiry"`
	Price  string `json:"price"`
}

// Appointment Events

// AppointmentBookedEvent is published when a slot is booked
type AppointmentBookedEvent struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Hour      int    `json:"hour"`
}

// VisitRecordedEvent is published when a booked visit takes place
type VisitRecordedEvent struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Hour      int    `json:"hour"`
	Medicine  string `json:"medicine"`
	Date      string `json:"date"`
}
