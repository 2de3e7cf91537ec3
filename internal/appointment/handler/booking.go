package handler

import (
	"fmt"
	"net/http"

	"github.com/medflow/hospital-backend/internal/appointment/service"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// BookingHandler handles booking and visit endpoints
type BookingHandler struct {
	service *service.SchedulerService
	logger  *logger.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(svc *service.SchedulerService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		logger:  log,
	}
}

type BookRequest struct {
	DoctorID  string `json:"doctor_id" validate:"required"`
	PatientID string `json:"patient_id" validate:"required"`
	Time      *int   `json:"time" validate:"required,gte=0,lte=23"`
}

type VisitRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Time     *int   `json:"time" validate:"required,gte=0,lte=23"`
	Medicine string `json:"medicine" validate:"required,max=200"`
}

type AppointmentView struct {
	DoctorID    string `json:"doctor_id"`
	DoctorName  string `json:"doctor_name"`
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Time        string `json:"time"`
	Status      string `json:"status"`
}

// Book reserves a slot
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	appt, err := h.service.Book(r.Context(), req.DoctorID, req.PatientID, *req.Time)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	slot := fmt.Sprintf("%d:00", appt.Hour)
	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Appointment booked successfully with %s at %s", appt.DoctorName, slot),
		"appointment": AppointmentView{
			DoctorID:    appt.DoctorID,
			DoctorName:  appt.DoctorName,
			PatientID:   appt.PatientID,
			PatientName: appt.PatientName,
			Time:        slot,
			Status:      "Confirmed",
		},
	})
}

// Visit records that a booked visit took place
func (h *BookingHandler) Visit(w http.ResponseWriter, r *http.Request) {
	var req VisitRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.service.RecordVisit(r.Context(), req.DoctorID, *req.Time, req.Medicine)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Doctor visit recorded successfully",
		"patient":  rec.PatientName,
		"doctor":   rec.DoctorName,
		"medicine": rec.Visit.Medicine,
	})
}
