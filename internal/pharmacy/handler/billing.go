package handler

import (
	"fmt"
	"net/http"

	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// BillingHandler handles billing and patient ledger endpoints
type BillingHandler struct {
	service *service.PharmacyService
	logger  *logger.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(svc *service.PharmacyService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		service: svc,
		logger:  log,
	}
}

// BillRequest sells one unit of a medicine to a patient
type BillRequest struct {
	PatientName  string `json:"patient_name" validate:"required,max=200"`
	MedicineName string `json:"medicine_name" validate:"required,max=200"`
}

// BillResponse describes a completed sale
type BillResponse struct {
	Message        string `json:"message"`
	Patient        string `json:"patient"`
	Medicine       string `json:"medicine"`
	SerialSold     string `json:"serial_sold"`
	PricePaid      Money  `json:"price_paid"`
	TotalPrice     Money  `json:"total_price"`
	RemainingStock int    `json:"remaining_stock"`
	ExpiredRemoved int    `json:"expired_removed"`
}

// Bill sells the earliest-expiring unit of a medicine to a patient
func (h *BillingHandler) Bill(w http.ResponseWriter, r *http.Request) {
	var req BillRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	bill, err := h.service.Bill(r.Context(), req.PatientName, req.MedicineName)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, BillResponse{
		Message:        fmt.Sprintf("Billed %s for %s", bill.Patient, bill.Medicine),
		Patient:        bill.Patient,
		Medicine:       bill.Medicine,
		SerialSold:     bill.SerialSold,
		PricePaid:      Money(bill.PricePaid),
		TotalPrice:     Money(bill.TotalSpent),
		RemainingStock: bill.RemainingStock,
		ExpiredRemoved: bill.ExpiredRemoved,
	})
}

// ListPatients returns every patient account in first-purchase order
func (h *BillingHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	accounts := h.service.ListPatients()

	views := make([]PatientView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, patientView(a))
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"patients": views,
	})
}

// GetPatient returns one patient account
func (h *BillingHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetPatient(urlParam(r, "name"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"patient": patientView(account),
	})
}

// Journal returns a patient's sales from the durable purchase journal
func (h *BillingHandler) Journal(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")

	records, err := h.service.JournalHistory(r.Context(), name)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries := make([]JournalEntryView, 0, len(records))
	for _, rec := range records {
		entries = append(entries, journalEntryView(rec))
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"patient":   name,
		"purchases": entries,
	})
}

// ClearBilling drops every patient account
func (h *BillingHandler) ClearBilling(w http.ResponseWriter, r *http.Request) {
	n := h.service.ClearBilling(r.Context())
	h.logger.WithRequestID(httputil.GetRequestID(r.Context())).Info().Int("patients", n).Msg("billing cleared via api")
	httputil.Message(w, http.StatusOK, "Billing records cleared successfully")
}
