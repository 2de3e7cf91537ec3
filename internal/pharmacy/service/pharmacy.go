package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medflow/hospital-backend/internal/pharmacy/analytics"
	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/internal/pharmacy/events"
	"github.com/medflow/hospital-backend/internal/pharmacy/inventory"
	"github.com/medflow/hospital-backend/internal/pharmacy/ledger"
	"github.com/medflow/hospital-backend/internal/pharmacy/repository"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/errors"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

// PurchaseJournal durably records committed sales
type PurchaseJournal interface {
	Append(ctx context.Context, rec *repository.PurchaseRecord) error
	ListByPatient(ctx context.Context, patient string) ([]*repository.PurchaseRecord, error)
}

// PharmacyService coordinates the inventory store, the analytics index and the
// patient ledger, and reports committed changes to the journal, the event bus
// and metrics. The in-memory engine is the source of truth; journal and event
// failures are logged and counted, never returned.
type PharmacyService struct {
	store     *inventory.Store
	index     *analytics.Index
	ledger    *ledger.Ledger
	clock     clock.Clock
	journal   PurchaseJournal
	publisher *events.PharmacyEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewPharmacyService wires a fresh engine. journal, publisher and m may be nil.
func NewPharmacyService(
	c clock.Clock,
	includeZeroStock bool,
	journal PurchaseJournal,
	publisher *events.PharmacyEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *PharmacyService {
	index := analytics.NewIndex(c, analytics.WithZeroStock(includeZeroStock))

	return &PharmacyService{
		store:     inventory.NewStore(c, index),
		index:     index,
		ledger:    ledger.New(),
		clock:     c,
		journal:   journal,
		publisher: publisher,
		metrics:   m,
		logger:    log.WithComponent("pharmacy"),
	}
}

// AddSerialInput is a request to stock one serial unit
type AddSerialInput struct {
	Name   string
	Serial string
	Expiry string
	Price  decimal.Decimal
}

// AddSerial stocks a serial unit and returns the medicine after the change
func (s *PharmacyService) AddSerial(ctx context.Context, in AddSerialInput) (domain.Medicine, domain.SerialUnit, error) {
	expiry, err := clock.ParseDate(in.Expiry)
	if err != nil {
		return domain.Medicine{}, domain.SerialUnit{}, errors.InvalidInput("expiry", "must be a date in YYYY-MM-DD format")
	}

	med, err := s.store.AddSerial(in.Name, in.Serial, expiry, in.Price)
	if err != nil {
		return domain.Medicine{}, domain.SerialUnit{}, err
	}

	unit := domain.SerialUnit{SerialID: in.Serial, Expiry: expiry, Price: in.Price}

	s.metrics.SerialAdded()
	s.logger.Debug().
		Str("medicine", in.Name).
		Str("serial", in.Serial).
		Int("stock", med.Stock).
		Msg("serial added")
	s.publisher.PublishSerialAdded(ctx, med.Name, unit, med.Stock)

	return med, unit, nil
}

// RemoveSerial withdraws a serial unit
func (s *PharmacyService) RemoveSerial(ctx context.Context, name, serial string) (domain.Medicine, error) {
	med, err := s.store.RemoveSerial(name, serial)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.metrics.SerialRemoved()
	s.logger.Debug().
		Str("medicine", name).
		Str("serial", serial).
		Int("stock", med.Stock).
		Msg("serial removed")
	s.publisher.PublishSerialRemoved(ctx, name, serial, med.Stock)

	return med, nil
}

// GetMedicine returns one medicine
func (s *PharmacyService) GetMedicine(name string) (domain.Medicine, error) {
	return s.store.Get(name)
}

// ListMedicines returns all medicines in first-creation order
func (s *PharmacyService) ListMedicines() []domain.Medicine {
	return s.store.List()
}

// Bill dispenses one unit of medicine to patient and records the purchase.
// The sale and the ledger entry commit together under the medicine lock.
func (s *PharmacyService) Bill(ctx context.Context, patient, medicine string) (domain.Bill, error) {
	details := map[string]string{}
	if strings.TrimSpace(patient) == "" {
		details["patient_name"] = "is required"
	}
	if strings.TrimSpace(medicine) == "" {
		details["medicine_name"] = "is required"
	}
	if len(details) > 0 {
		return domain.Bill{}, errors.Validation(details)
	}

	var total decimal.Decimal
	res, err := s.store.Dispense(medicine, func(sale domain.Sale) {
		total = s.ledger.RecordPurchase(patient, sale.Medicine, sale.SerialID, sale.Price, sale.Time)
	})

	if res.ExpiredRemoved > 0 {
		s.metrics.Purged(res.ExpiredRemoved)
		s.logger.Info().
			Str("medicine", medicine).
			Strs("serials", res.ExpiredSerials).
			Msg("purged expired serials")
		s.publisher.PublishSerialsExpired(ctx, medicine, res.ExpiredSerials)
	}

	if err != nil {
		if errors.Is(err, errors.ErrOutOfStock) {
			s.metrics.Bill(metrics.OutcomeOutOfStock)
		} else {
			s.metrics.Bill(metrics.OutcomeError)
		}
		return domain.Bill{}, err
	}

	bill := domain.Bill{
		Patient:        patient,
		Medicine:       medicine,
		SerialSold:     res.SerialID,
		PricePaid:      res.Price,
		TotalSpent:     total,
		RemainingStock: res.RemainingStock,
		ExpiredRemoved: res.ExpiredRemoved,
	}

	s.metrics.Bill(metrics.OutcomeSold)
	s.logger.Debug().
		Str("patient", patient).
		Str("medicine", medicine).
		Str("serial", res.SerialID).
		Msg("medicine dispensed")

	s.journalSale(ctx, bill)
	s.publisher.PublishDispensed(ctx, bill)

	return bill, nil
}

func (s *PharmacyService) journalSale(ctx context.Context, bill domain.Bill) {
	if s.journal == nil {
		return
	}

	rec := &repository.PurchaseRecord{
		ID:             uuid.NewString(),
		Patient:        bill.Patient,
		Medicine:       bill.Medicine,
		SerialID:       bill.SerialSold,
		Price:          bill.PricePaid,
		ExpiredRemoved: bill.ExpiredRemoved,
		SoldAt:         s.clock.Now().UTC(),
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		s.metrics.JournalFailed()
		s.logger.Warn().
			Err(err).
			Str("patient", bill.Patient).
			Str("medicine", bill.Medicine).
			Str("serial", bill.SerialSold).
			Msg("failed to journal purchase")
	}
}

// ListPatients returns all billing accounts in order of first purchase
func (s *PharmacyService) ListPatients() []domain.PatientAccount {
	return s.ledger.List()
}

// GetPatient returns one billing account
func (s *PharmacyService) GetPatient(name string) (domain.PatientAccount, error) {
	return s.ledger.Get(name)
}

// JournalHistory returns a patient's durably recorded sales, oldest first.
// Unlike the in-memory ledger it survives restarts and clear-billing.
func (s *PharmacyService) JournalHistory(ctx context.Context, patient string) ([]*repository.PurchaseRecord, error) {
	if s.journal == nil {
		return nil, errors.Unavailable("purchase journal is not enabled")
	}
	records, err := s.journal.ListByPatient(ctx, patient)
	if err != nil {
		s.logger.Error().Err(err).Str("patient", patient).Msg("failed to read purchase journal")
		return nil, err
	}
	if records == nil {
		records = []*repository.PurchaseRecord{}
	}
	return records, nil
}

// MostDemanded returns the best-selling medicine
func (s *PharmacyService) MostDemanded() (domain.DemandLeader, error) {
	return s.index.MostDemanded()
}

// LowestStock returns the medicine closest to running out
func (s *PharmacyService) LowestStock() (domain.StockLeader, error) {
	return s.index.LowestStock()
}

// ExpiryLeader is the unit that expires first, with days left counted from today
type ExpiryLeader struct {
	domain.ExpiryRef
	DaysUntilExpiry int
}

// NearestExpiry returns the live unit that expires first
func (s *PharmacyService) NearestExpiry() (ExpiryLeader, error) {
	ref, err := s.index.NearestExpiry()
	if err != nil {
		return ExpiryLeader{}, err
	}
	return ExpiryLeader{
		ExpiryRef:       ref,
		DaysUntilExpiry: clock.DaysBetween(clock.Today(s.clock), ref.Expiry),
	}, nil
}

// ClearInventory drops every medicine and the analytics built from them
func (s *PharmacyService) ClearInventory(ctx context.Context) int {
	n := s.store.Reset()
	s.logger.Info().Int("medicines", n).Msg("inventory cleared")
	s.publisher.PublishInventoryCleared(ctx, n)
	return n
}

// ClearBilling drops every patient account
func (s *PharmacyService) ClearBilling(ctx context.Context) int {
	n := s.ledger.Reset()
	s.logger.Info().Int("patients", n).Msg("billing records cleared")
	return n
}

// Stats summarises the engine for health checks
type Stats struct {
	Medicines  int `json:"medicines"`
	TotalStock int `json:"total_stock"`
	Patients   int `json:"patients"`
}

// Stats returns engine counters
func (s *PharmacyService) Stats() Stats {
	inv := s.store.Stats()
	return Stats{
		Medicines:  inv.Medicines,
		TotalStock: inv.TotalStock,
		Patients:   s.ledger.Count(),
	}
}
