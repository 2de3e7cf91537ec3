// Package service implements the doctor appointment scheduler.
package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/medflow/hospital-backend/internal/appointment/domain"
	"github.com/medflow/hospital-backend/internal/appointment/events"
	"github.com/medflow/hospital-backend/pkg/clock"
	"github.com/medflow/hospital-backend/pkg/errors"
	"github.com/medflow/hospital-backend/pkg/logger"
	"github.com/medflow/hospital-backend/pkg/metrics"
)

// SchedulerService keeps the patient registry and doctor slots in memory
type SchedulerService struct {
	mu          sync.RWMutex
	patients    map[string]*domain.Patient
	doctors     map[string]*domain.Doctor
	nextPatient uint64
	nextDoctor  uint64

	clock     clock.Clock
	publisher *events.AppointmentEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewSchedulerService creates an empty scheduler. publisher and m may be nil.
func NewSchedulerService(c clock.Clock, publisher *events.AppointmentEventPublisher, m *metrics.Metrics, log *logger.Logger) *SchedulerService {
	return &SchedulerService{
		patients:  make(map[string]*domain.Patient),
		doctors:   make(map[string]*domain.Doctor),
		clock:     c,
		publisher: publisher,
		metrics:   m,
		logger:    log.WithComponent("scheduler"),
	}
}

// AddPatient registers a patient under a fresh id
func (s *SchedulerService) AddPatient(name string, age int, contact string) (domain.Patient, error) {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "is required"
	}
	if age < 0 {
		details["age"] = "must not be negative"
	}
	if len(details) > 0 {
		return domain.Patient{}, errors.Validation(details)
	}

	s.mu.Lock()
	s.nextPatient++
	p := &domain.Patient{
		ID:      strconv.FormatUint(s.nextPatient, 10),
		Name:    name,
		Age:     age,
		Contact: contact,
		History: []domain.Visit{},
	}
	s.patients[p.ID] = p
	out := clonePatient(p)
	s.mu.Unlock()

	s.logger.Debug().Str("patient_id", out.ID).Msg("patient added")
	return out, nil
}

// ListPatients returns every patient in id order
func (s *SchedulerService) ListPatients() []domain.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Patient, 0, len(s.patients))
	for _, id := range sortedIDs(s.patients) {
		out = append(out, clonePatient(s.patients[id]))
	}
	return out
}

// PatientHistory returns a patient with their visit history
func (s *SchedulerService) PatientHistory(id string) (domain.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return domain.Patient{}, errors.NotFound("patient")
	}
	return clonePatient(p), nil
}

// DeletePatient removes a patient and frees every slot they hold
func (s *SchedulerService) DeletePatient(id string) (domain.Patient, error) {
	s.mu.Lock()
	p, ok := s.patients[id]
	if !ok {
		s.mu.Unlock()
		return domain.Patient{}, errors.NotFound("patient")
	}
	delete(s.patients, id)

	freed := 0
	for _, d := range s.doctors {
		for hour, pid := range d.Slots {
			if pid == id {
				d.Slots[hour] = ""
				freed++
			}
		}
	}
	s.mu.Unlock()

	s.logger.Info().Str("patient_id", id).Int("slots_freed", freed).Msg("patient deleted")
	return clonePatient(p), nil
}

// AddDoctor registers a doctor with one free slot per hour in [start, end)
func (s *SchedulerService) AddDoctor(name, speciality string, start, end int) (domain.Doctor, error) {
	details := map[string]string{}
	if strings.TrimSpace(name) == "" {
		details["name"] = "is required"
	}
	if start < domain.FirstHour || start > domain.LastHour {
		details["start_time"] = fmt.Sprintf("must be between %d and %d", domain.FirstHour, domain.LastHour)
	}
	if end < domain.FirstHour || end > domain.LastHour {
		details["end_time"] = fmt.Sprintf("must be between %d and %d", domain.FirstHour, domain.LastHour)
	}
	if len(details) > 0 {
		return domain.Doctor{}, errors.Validation(details)
	}
	if start >= end {
		return domain.Doctor{}, errors.InvalidInput("end_time", "End time must be after start time")
	}
	if strings.TrimSpace(speciality) == "" {
		speciality = "General"
	}

	slots := make(map[int]string, end-start)
	for h := start; h < end; h++ {
		slots[h] = ""
	}

	s.mu.Lock()
	s.nextDoctor++
	d := &domain.Doctor{
		ID:         strconv.FormatUint(s.nextDoctor, 10),
		Name:       name,
		Speciality: speciality,
		Slots:      slots,
	}
	s.doctors[d.ID] = d
	out := cloneDoctor(d)
	s.mu.Unlock()

	s.logger.Debug().Str("doctor_id", out.ID).Int("slots", len(slots)).Msg("doctor added")
	return out, nil
}

// ListDoctors returns every doctor in id order
func (s *SchedulerService) ListDoctors() []domain.Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Doctor, 0, len(s.doctors))
	for _, id := range sortedIDs(s.doctors) {
		out = append(out, cloneDoctor(s.doctors[id]))
	}
	return out
}

// Schedule splits a doctor's slots into free hours and bookings
func (s *SchedulerService) Schedule(doctorID string) (domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return domain.Schedule{}, errors.NotFound("doctor")
	}

	sched := domain.Schedule{
		DoctorID:   d.ID,
		Name:       d.Name,
		Speciality: d.Speciality,
		Available:  []int{},
		Booked:     map[int]string{},
		Total:      len(d.Slots),
	}
	for _, h := range d.Hours() {
		if pid := d.Slots[h]; pid != "" {
			sched.Booked[h] = pid
		} else {
			sched.Available = append(sched.Available, h)
		}
	}
	return sched, nil
}

// DeleteDoctor removes a doctor together with their bookings
func (s *SchedulerService) DeleteDoctor(id string) (domain.Doctor, error) {
	s.mu.Lock()
	d, ok := s.doctors[id]
	if ok {
		delete(s.doctors, id)
	}
	s.mu.Unlock()

	if !ok {
		return domain.Doctor{}, errors.NotFound("doctor")
	}
	s.logger.Info().Str("doctor_id", id).Msg("doctor deleted")
	return cloneDoctor(d), nil
}

// Book reserves a doctor's hour for a patient
func (s *SchedulerService) Book(ctx context.Context, doctorID, patientID string, hour int) (domain.Appointment, error) {
	s.mu.Lock()
	d, ok := s.doctors[doctorID]
	if !ok {
		s.mu.Unlock()
		return domain.Appointment{}, errors.NotFound("doctor")
	}
	p, ok := s.patients[patientID]
	if !ok {
		s.mu.Unlock()
		return domain.Appointment{}, errors.NotFound("patient")
	}
	current, ok := d.Slots[hour]
	if !ok {
		s.mu.Unlock()
		return domain.Appointment{}, errors.InvalidInput("time", fmt.Sprintf("slot %d:00 not available for this doctor", hour))
	}
	if current != "" {
		s.mu.Unlock()
		return domain.Appointment{}, errors.Conflict(fmt.Sprintf("slot %d:00 already booked", hour))
	}
	d.Slots[hour] = patientID
	appt := domain.Appointment{
		DoctorID:    d.ID,
		DoctorName:  d.Name,
		PatientID:   p.ID,
		PatientName: p.Name,
		Hour:        hour,
	}
	s.mu.Unlock()

	s.metrics.AppointmentBooked()
	s.logger.Debug().
		Str("doctor_id", doctorID).
		Str("patient_id", patientID).
		Int("hour", hour).
		Msg("appointment booked")
	s.publisher.PublishBooked(ctx, appt)

	return appt, nil
}

// RecordVisit closes a booked slot, appending the visit to the patient's history
func (s *SchedulerService) RecordVisit(ctx context.Context, doctorID string, hour int, medicine string) (domain.VisitRecord, error) {
	s.mu.Lock()
	d, ok := s.doctors[doctorID]
	if !ok {
		s.mu.Unlock()
		return domain.VisitRecord{}, errors.NotFound("doctor")
	}
	patientID, ok := d.Slots[hour]
	if !ok {
		s.mu.Unlock()
		return domain.VisitRecord{}, errors.InvalidInput("time", "invalid time slot")
	}
	if patientID == "" {
		s.mu.Unlock()
		return domain.VisitRecord{}, errors.BadRequest("no appointment at this time slot")
	}
	p, ok := s.patients[patientID]
	if !ok {
		s.mu.Unlock()
		return domain.VisitRecord{}, errors.NotFound("patient")
	}

	visit := domain.Visit{
		Doctor:   d.Name,
		Time:     hour,
		Medicine: medicine,
		Date:     clock.FormatDate(clock.Today(s.clock)),
	}
	p.History = append(p.History, visit)
	d.Slots[hour] = ""

	rec := domain.VisitRecord{
		DoctorID:    d.ID,
		DoctorName:  d.Name,
		PatientID:   p.ID,
		PatientName: p.Name,
		Visit:       visit,
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("doctor_id", doctorID).
		Str("patient_id", patientID).
		Int("hour", hour).
		Msg("visit recorded")
	s.publisher.PublishVisitRecorded(ctx, rec)

	return rec, nil
}

// Counts reports registry sizes for health checks
func (s *SchedulerService) Counts() (patients, doctors int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients), len(s.doctors)
}

func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

func clonePatient(p *domain.Patient) domain.Patient {
	out := *p
	out.History = append([]domain.Visit{}, p.History...)
	return out
}

func cloneDoctor(d *domain.Doctor) domain.Doctor {
	out := *d
	out.Slots = make(map[int]string, len(d.Slots))
	for h, pid := range d.Slots {
		out.Slots[h] = pid
	}
	return out
}
