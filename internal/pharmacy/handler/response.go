package handler

import (
	"time"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/internal/pharmacy/repository"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/shopspring/decimal"
)

// purchaseTimeLayout matches the timestamps existing clients already parse
const purchaseTimeLayout = "2006-01-02 15:04:05"

// Money renders a decimal as a JSON number with two decimal places
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

// SerialView is one stocked unit keyed by serial id
type SerialView struct {
	Expiry string `json:"expiry"`
	Price  Money  `json:"price"`
}

// MedicineView is a medicine with its live serial units
type MedicineView struct {
	Name    string                `json:"name"`
	Stock   int                   `json:"stock"`
	Sold    int                   `json:"sold"`
	Serials map[string]SerialView `json:"serials"`
}

func medicineView(m domain.Medicine) MedicineView {
	serials := make(map[string]SerialView, len(m.Serials))
	for _, u := range m.Serials {
		serials[u.SerialID] = SerialView{
			Expiry: clock.FormatDate(u.Expiry),
			Price:  Money(u.Price),
		}
	}
	return MedicineView{
		Name:    m.Name,
		Stock:   m.Stock,
		Sold:    m.Sold,
		Serials: serials,
	}
}

// PurchaseView is one line of a patient's purchase history
type PurchaseView struct {
	Medicine string `json:"medicine"`
	Serial   string `json:"serial"`
	Price    Money  `json:"price"`
	Date     string `json:"date"`
}

// PatientView is a patient billing account
type PatientView struct {
	Name           string         `json:"name"`
	TotalPrice     Money          `json:"total_price"`
	TotalPurchases int            `json:"total_purchases"`
	Purchases      []PurchaseView `json:"purchases"`
	Frequency      map[string]int `json:"frequency"`
}

func patientView(a domain.PatientAccount) PatientView {
	purchases := make([]PurchaseView, 0, len(a.Purchases))
	for _, p := range a.Purchases {
		purchases = append(purchases, PurchaseView{
			Medicine: p.Medicine,
			Serial:   p.SerialID,
			Price:    Money(p.Price),
			Date:     formatPurchaseTime(p.Time),
		})
	}
	freq := a.Frequency
	if freq == nil {
		freq = map[string]int{}
	}
	return PatientView{
		Name:           a.Name,
		TotalPrice:     Money(a.TotalSpent),
		TotalPurchases: len(a.Purchases),
		Purchases:      purchases,
		Frequency:      freq,
	}
}

// JournalEntryView is one sale read back from the purchase journal
type JournalEntryView struct {
	ID             string `json:"id"`
	Medicine       string `json:"medicine"`
	Serial         string `json:"serial"`
	Price          Money  `json:"price"`
	ExpiredRemoved int    `json:"expired_removed"`
	Date           string `json:"date"`
}

func journalEntryView(rec *repository.PurchaseRecord) JournalEntryView {
	return JournalEntryView{
		ID:             rec.ID,
		Medicine:       rec.Medicine,
		Serial:         rec.SerialID,
		Price:          Money(rec.Price),
		ExpiredRemoved: rec.ExpiredRemoved,
		Date:           formatPurchaseTime(rec.SoldAt),
	}
}

func formatPurchaseTime(t time.Time) string {
	return t.Format(purchaseTimeLayout)
}
