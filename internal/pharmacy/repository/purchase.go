package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medflow/hospital-backend/pkg/database"
)

// Schema creates the purchase journal table
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS purchase_journal (
		id              UUID PRIMARY KEY,
		patient_name    TEXT NOT NULL,
		medicine_name   TEXT NOT NULL,
		serial_id       TEXT NOT NULL,
		price           NUMERIC(12, 2) NOT NULL CONSTRAINT price_non_negative CHECK (price >= 0),
		expired_removed INTEGER NOT NULL DEFAULT 0,
		sold_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_journal_patient ON purchase_journal (patient_name, sold_at)`,
}

// PurchaseRecord is one journaled sale
type PurchaseRecord struct {
	ID             string          `db:"id" json:"id"`
	Patient        string          `db:"patient_name" json:"patient_name"`
	Medicine       string          `db:"medicine_name" json:"medicine_name"`
	SerialID       string          `db:"serial_id" json:"serial_id"`
	Price          decimal.Decimal `db:"price" json:"price"`
	ExpiredRemoved int             `db:"expired_removed" json:"expired_removed"`
	SoldAt         time.Time       `db:"sold_at" json:"sold_at"`
}

// PurchaseRepository appends sales to the purchase journal
type PurchaseRepository struct {
	db *database.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Append inserts one journal record
func (r *PurchaseRepository) Append(ctx context.Context, rec *PurchaseRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.SoldAt.IsZero() {
		rec.SoldAt = time.Now().UTC()
	}

	query := `
		INSERT INTO purchase_journal (id, patient_name, medicine_name, serial_id, price, expired_removed, sold_at)
		VALUES (:id, :patient_name, :medicine_name, :serial_id, :price, :expired_removed, :sold_at)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to append purchase: %w", err)
	}
	return nil
}

// ListByPatient returns a patient's journaled sales, oldest first
func (r *PurchaseRepository) ListByPatient(ctx context.Context, patient string) ([]*PurchaseRecord, error) {
	var records []*PurchaseRecord
	query := `
		SELECT id, patient_name, medicine_name, serial_id, price, expired_removed, sold_at
		FROM purchase_journal
		WHERE patient_name = $1
		ORDER BY sold_at, id`

	if err := r.db.SelectContext(ctx, &records, query, patient); err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return records, nil
}
