package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpiryRef identifies one stocked instance of a serial. Seq is unique for the
// lifetime of the store, so a serial id removed and added again gets a new Seq.
type ExpiryRef struct {
	Seq      uint64
	Medicine string
	SerialID string
	Expiry   time.Time
	Price    decimal.Decimal
}

// Change is the post-commit state of one medicine after a mutation.
// Version increases with every committed mutation across the whole store.
type Change struct {
	Medicine string
	Version  uint64
	Stock    int
	Sold     int
	Added    []ExpiryRef
	Removed  []uint64
}
