package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/hospital-backend/internal/appointment/service"
	"github.com/medflow/hospital-backend/pkg/httputil"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// DoctorHandler handles doctor and schedule endpoints
type DoctorHandler struct {
	service *service.SchedulerService
	logger  *logger.Logger
}

// NewDoctorHandler creates a new doctor handler
func NewDoctorHandler(svc *service.SchedulerService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: svc,
		logger:  log,
	}
}

type CreateDoctorRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Speciality string `json:"speciality" validate:"max=100"`
	StartTime  *int   `json:"start_time" validate:"required,gte=0,lte=23"`
	EndTime    *int   `json:"end_time" validate:"required,gte=0,lte=23"`
}

// List lists doctors with their slots
func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request) {
	doctors := h.service.ListDoctors()

	records := make([]DoctorRecord, 0, len(doctors))
	for _, d := range doctors {
		records = append(records, DoctorRecord{DoctorID: d.ID, DoctorView: doctorView(d)})
	}

	httputil.JSON(w, http.StatusOK, records)
}

// Create registers a doctor with hourly slots
func (h *DoctorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDoctorRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	d, err := h.service.AddDoctor(req.Name, req.Speciality, *req.StartTime, *req.EndTime)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"message":   "Doctor added successfully",
		"doctor_id": d.ID,
		"doctor":    doctorView(d),
	})
}

// Schedule returns a doctor's free and booked hours
func (h *DoctorHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.service.Schedule(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"doctor_id":       sched.DoctorID,
		"name":            sched.Name,
		"speciality":      sched.Speciality,
		"available_slots": sched.Available,
		"booked_slots":    sched.Booked,
		"total_slots":     sched.Total,
	})
}

// Delete removes a doctor
func (h *DoctorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.DeleteDoctor(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, fmt.Sprintf("Doctor %s deleted successfully", d.Name))
}
