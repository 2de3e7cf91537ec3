package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is one immutable ledger line
type Purchase struct {
	Medicine string
	SerialID string
	Price    decimal.Decimal
	Time     time.Time
}

// PatientAccount is a snapshot of a patient's billing history
type PatientAccount struct {
	Name       string
	TotalSpent decimal.Decimal
	Purchases  []Purchase
	Frequency  map[string]int
}

// Bill is the outcome of a successful billing transaction
type Bill struct {
	Patient        string
	Medicine       string
	SerialSold     string
	PricePaid      decimal.Decimal
	TotalSpent     decimal.Decimal
	RemainingStock int
	ExpiredRemoved int
}

// DemandLeader is the answer to the most-demanded query
type DemandLeader struct {
	Name string
	Sold int
}

// StockLeader is the answer to the lowest-stock query
type StockLeader struct {
	Name  string
	Stock int
}
