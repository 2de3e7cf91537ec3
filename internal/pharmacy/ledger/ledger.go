// Package ledger keeps each patient's purchase history and running total.
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medflow/hospital-backend/internal/pharmacy/domain"
	"github.com/medflow/hospital-backend/pkg/errors"
)

type account struct {
	mu         sync.Mutex
	name       string
	totalSpent decimal.Decimal
	purchases  []domain.Purchase
	frequency  map[string]int
}

func (a *account) snapshot() domain.PatientAccount {
	purchases := make([]domain.Purchase, len(a.purchases))
	copy(purchases, a.purchases)

	frequency := make(map[string]int, len(a.frequency))
	for k, v := range a.frequency {
		frequency[k] = v
	}

	return domain.PatientAccount{
		Name:       a.name,
		TotalSpent: a.totalSpent,
		Purchases:  purchases,
		Frequency:  frequency,
	}
}

// Ledger maps patient names to accounts. Accounts are created on first
// purchase and only disappear through Reset.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
	order    []string
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

func (l *Ledger) accountFor(name string) *account {
	l.mu.RLock()
	a, ok := l.accounts[name]
	l.mu.RUnlock()
	if ok {
		return a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[name]; ok {
		return a
	}
	a = &account{name: name, frequency: make(map[string]int)}
	l.accounts[name] = a
	l.order = append(l.order, name)
	return a
}

// RecordPurchase appends a purchase to the patient's account and returns the new total spent
func (l *Ledger) RecordPurchase(patient, medicine, serialID string, price decimal.Decimal, at time.Time) decimal.Decimal {
	a := l.accountFor(patient)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.purchases = append(a.purchases, domain.Purchase{
		Medicine: medicine,
		SerialID: serialID,
		Price:    price,
		Time:     at,
	})
	a.totalSpent = a.totalSpent.Add(price)
	a.frequency[medicine]++

	return a.totalSpent
}

// Get returns a snapshot of one patient's account
func (l *Ledger) Get(patient string) (domain.PatientAccount, error) {
	l.mu.RLock()
	a, ok := l.accounts[patient]
	l.mu.RUnlock()
	if !ok {
		return domain.PatientAccount{}, errors.NotFound("patient " + patient)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot(), nil
}

// List returns every account in order of first purchase
func (l *Ledger) List() []domain.PatientAccount {
	l.mu.RLock()
	accounts := make([]*account, 0, len(l.order))
	for _, name := range l.order {
		accounts = append(accounts, l.accounts[name])
	}
	l.mu.RUnlock()

	out := make([]domain.PatientAccount, 0, len(accounts))
	for _, a := range accounts {
		a.mu.Lock()
		out = append(out, a.snapshot())
		a.mu.Unlock()
	}
	return out
}

// Count returns the number of accounts
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

// Reset drops every account and returns how many there were
func (l *Ledger) Reset() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.accounts)
	l.accounts = make(map[string]*account)
	l.order = nil
	return n
}
