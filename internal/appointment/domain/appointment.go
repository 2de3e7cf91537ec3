// Package domain holds the appointment scheduler's records.
package domain

// Slot bounds. A doctor works whole hours in [Start, End).
const (
	FirstHour = 0
	LastHour  = 23
)

// Visit is one entry in a patient's history
type Visit struct {
	Doctor   string `json:"Doctor"`
	Time     int    `json:"Time"`
	Medicine string `json:"Medicine"`
	Date     string `json:"Date"`
}

type Patient struct {
	ID      string
	Name    string
	Age     int
	Contact string
	History []Visit
}

// Doctor owns one slot per working hour. Slots maps hour to the booked
// patient id; an empty id is a free slot.
type Doctor struct {
	ID         string
	Name       string
	Speciality string
	Slots      map[int]string
}

// Hours returns the doctor's working hours in ascending order
func (d Doctor) Hours() []int {
	hours := make([]int, 0, len(d.Slots))
	for h := FirstHour; h <= LastHour; h++ {
		if _, ok := d.Slots[h]; ok {
			hours = append(hours, h)
		}
	}
	return hours
}

type Schedule struct {
	DoctorID   string
	Name       string
	Speciality string
	Available  []int
	Booked     map[int]string
	Total      int
}

type Appointment struct {
	DoctorID    string
	DoctorName  string
	PatientID   string
	PatientName string
	Hour        int
}

type VisitRecord struct {
	DoctorID    string
	DoctorName  string
	PatientID   string
	PatientName string
	Visit       Visit
}
