package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/hospital-backend/internal/appointment/service"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// PatientHandler handles patient registry endpoints
type PatientHandler struct {
	service *service.SchedulerService
	logger  *logger.Logger
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(svc *service.SchedulerService, log *logger.Logger) *PatientHandler {
	return &PatientHandler{
		service: svc,
		logger:  log,
	}
}

type CreatePatientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Age     int    `json:"age" validate:"gte=0,lte=150"`
	Contact string `json:"contact" validate:"max=100"`
}

// List lists registered patients
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients := h.service.ListPatients()

	records := make([]PatientRecord, 0, len(patients))
	for _, p := range patients {
		records = append(records, PatientRecord{PatientID: p.ID, PatientView: patientView(p)})
	}

	httputil.JSON(w, http.StatusOK, records)
}

// Create registers a patient
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	p, err := h.service.AddPatient(req.Name, req.Age, req.Contact)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"message":    "Patient added successfully",
		"patient_id": p.ID,
		"patient":    patientView(p),
	})
}

// History returns a patient's visit history
func (h *PatientHandler) History(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.PatientHistory(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"patient_id": p.ID,
		"name":       p.Name,
		"history":    patientView(p).History,
	})
}

// Delete removes a patient
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.DeletePatient(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, fmt.Sprintf("Patient %s deleted successfully", p.Name))
}
