package handler

import (
	"fmt"
	"net/http"

	"github.com/medflow/hospital-backend/internal/pharmacy/service"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// MedicineHandler handles stock endpoints
type MedicineHandler struct {
	service *service.PharmacyService
	logger  *logger.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(svc *service.PharmacyService, log *logger.Logger) *MedicineHandler {
	return &MedicineHandler{
		service: svc,
		logger:  log,
	}
}

// AddMedicineRequest stocks one serial unit of a medicine
type AddMedicineRequest struct {
	Name   string           `json:"name" validate:"required,max=200"`
	Serial string           `json:"serial" validate:"required,max=100"`
	Expiry string           `json:"expiry" validate:"required,datetime=2006-01-02"`
	Price  *decimal.Decimal `json:"price" validate:"required"`
}

// AddedSerialView echoes a newly stocked unit with the medicine's stock after the add
type AddedSerialView struct {
	Name         string `json:"name"`
	Serial       string `json:"serial"`
	Expiry       string `json:"expiry"`
	Price        Money  `json:"price"`
	CurrentStock int    `json:"current_stock"`
}

// Add stocks one serial unit
func (h *MedicineHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddMedicineRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	med, unit, err := h.service.AddSerial(r.Context(), service.AddSerialInput{
		Name:   req.Name,
		Serial: req.Serial,
		Expiry: req.Expiry,
		Price:  *req.Price,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	expiry := clock.FormatDate(unit.Expiry)
	httputil.Created(w, map[string]interface{}{
		"message": fmt.Sprintf("Added %s (Serial %s, Expiry %s, Price %s)",
			med.Name, unit.SerialID, expiry, unit.Price.StringFixed(2)),
		"medicine": AddedSerialView{
			Name:         med.Name,
			Serial:       unit.SerialID,
			Expiry:       expiry,
			Price:        Money(unit.Price),
			CurrentStock: med.Stock,
		},
	})
}

// Remove withdraws a serial unit
func (h *MedicineHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	serial := urlParam(r, "serial")

	med, err := h.service.RemoveSerial(r.Context(), name, serial)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"message":       fmt.Sprintf("Removed serial %s of %s", serial, name),
		"current_stock": med.Stock,
	})
}

// List returns every medicine in creation order
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	meds := h.service.ListMedicines()

	views := make([]MedicineView, 0, len(meds))
	for _, m := range meds {
		views = append(views, medicineView(m))
	}

	httputil.JSON(w, http.StatusOK, views)
}

// Get returns one medicine
func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	med, err := h.service.GetMedicine(urlParam(r, "name"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"medicine": medicineView(med),
	})
}

// ClearInventory drops all stock
func (h *MedicineHandler) ClearInventory(w http.ResponseWriter, r *http.Request) {
	n := h.service.ClearInventory(r.Context())
	h.logger.WithRequestID(httputil.GetRequestID(r.Context())).Info().Int("medicines", n).Msg("inventory cleared via api")
	httputil.Message(w, http.StatusOK, "Inventory cleared successfully")
}
