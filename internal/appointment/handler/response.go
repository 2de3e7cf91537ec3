package handler

import (
	"strconv"

	"github.com/medflow/hospital-backend/internal/appointment/domain"
)

type PatientView struct {
	Name    string         `json:"name"`
	Age     int            `json:"age"`
	Contact string         `json:"contact"`
	History []domain.Visit `json:"history"`
}

type PatientRecord struct {
	PatientID string `json:"patient_id"`
	PatientView
}

func patientView(p domain.Patient) PatientView {
	history := p.History
	if history == nil {
		history = []domain.Visit{}
	}
	return PatientView{
		Name:    p.Name,
		Age:     p.Age,
		Contact: p.Contact,
		History: history,
	}
}

// DoctorView renders slots keyed by hour; a free slot is null
type DoctorView struct {
	Name       string             `json:"name"`
	Speciality string             `json:"speciality"`
	Slots      map[string]*string `json:"slots"`
}

type DoctorRecord struct {
	DoctorID string `json:"doctor_id"`
	DoctorView
}

func doctorView(d domain.Doctor) DoctorView {
	slots := make(map[string]*string, len(d.Slots))
	for hour, pid := range d.Slots {
		var booked *string
		if pid != "" {
			id := pid
			booked = &id
		}
		slots[strconv.Itoa(hour)] = booked
	}
	return DoctorView{
		Name:       d.Name,
		Speciality: d.Speciality,
		Slots:      slots,
	}
}
