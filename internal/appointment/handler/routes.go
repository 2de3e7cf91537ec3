package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/medflow/hospital-backend/internal/appointment/service"
	"github.com/medflow/hospital-backend/pkg/logger"
)

// Routes builds the scheduler API router, mounted by the service under /api/appointments
func Routes(svc *service.SchedulerService, log *logger.Logger) chi.Router {
	patientHandler := NewPatientHandler(svc, log)
	doctorHandler := NewDoctorHandler(svc, log)
	bookingHandler := NewBookingHandler(svc, log)

	r := chi.NewRouter()

	r.Route("/patients", func(r chi.Router) {
		r.Get("/", patientHandler.List)
		r.Post("/", patientHandler.Create)
		r.Get("/{id}/history", patientHandler.History)
		r.Delete("/{id}", patientHandler.Delete)
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Get("/", doctorHandler.List)
		r.Post("/", doctorHandler.Create)
		r.Get("/{id}/schedule", doctorHandler.Schedule)
		r.Delete("/{id}", doctorHandler.Delete)
	})

	r.Post("/book", bookingHandler.Book)
	r.Post("/visit", bookingHandler.Visit)

	return r
}
