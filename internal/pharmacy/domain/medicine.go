// Package domain holds the pharmacy value types shared by the store, the
// analytics index, the ledger and the HTTP layer.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SerialUnit is one individually tracked unit of a medicine
type SerialUnit struct {
	SerialID string
	Expiry   time.Time
	Price    decimal.Decimal
}

// Medicine is an immutable snapshot of a medicine record.
// Serials are ordered by expiry, then serial id.
type Medicine struct {
	Name    string
	Stock   int
	Sold    int
	Serials []SerialUnit
}

// Sale is the unit picked by the dispenser, handed to the ledger before the medicine lock is released
type Sale struct {
	Medicine string
	SerialID string
	Price    decimal.Decimal
	Time     time.Time
}

// DispenseResult describes one dispense attempt. On OutOfStock only the purge fields are set.
type DispenseResult struct {
	SerialID       string
	Price          decimal.Decimal
	ExpiredRemoved int
	ExpiredSerials []string
	RemainingStock int
	Sold           int
}

// InventoryStats summarises the store for health checks
type InventoryStats struct {
	Medicines  int
	TotalStock int
}
