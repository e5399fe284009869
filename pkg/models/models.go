package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies a record type in the clinic data model
type EntityType string

const (
	EntityDepartment    EntityType = "department"
	EntityClinic        EntityType = "clinic"
	EntityPatient       EntityType = "patient"
	EntityDoctor        EntityType = "doctor"
	EntityService       EntityType = "service"
	EntityDoctorService EntityType = "doctor_service"
	EntityRoom          EntityType = "room"
	EntityAppointment   EntityType = "appointment"
	EntityPrescription  EntityType = "prescription"
	EntityMedicalRecord EntityType = "medical_record"
	EntityPayment       EntityType = "payment"
)

// Gender represents a patient's recorded gender
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is one of the known gender values
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// Valid reports whether s is one of the known appointment statuses
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// CanTransition reports whether a status change from s to next is allowed.
// Scheduled may move to Completed or Cancelled; both of those are terminal.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	return s == AppointmentScheduled && next.Valid()
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "Cash"
	PaymentMethodCard      PaymentMethod = "Card"
	PaymentMethodInsurance PaymentMethod = "Insurance"
	PaymentMethodOnline    PaymentMethod = "Online"
)

// Valid reports whether m is one of the known payment methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodInsurance, PaymentMethodOnline:
		return true
	}
	return false
}

// PaymentStatus represents the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

// Valid reports whether s is one of the known payment statuses
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// Department represents a hospital department
type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Clinic represents a clinic location appointments can be held at
type Clinic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Patient represents a registered patient
type Patient struct {
	ID               string `json:"id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	DateOfBirth      string `json:"date_of_birth"` // YYYY-MM-DD
	Gender           Gender `json:"gender"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Address          string `json:"address,omitempty"`
	RegistrationDate string `json:"registration_date"` // YYYY-MM-DD, defaults to creation date
}

// Doctor represents a practicing doctor attached to a department
type Doctor struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization,omitempty"`
	DepartmentID   string `json:"department_id"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	HireDate       string `json:"hire_date,omitempty"` // YYYY-MM-DD
}

// Service represents a billable medical service
type Service struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// DoctorService links a doctor to a service they offer.
// The (doctor, service) pair is unique.
type DoctorService struct {
	ID        string `json:"id"`
	DoctorID  string `json:"doctor_id"`
	ServiceID string `json:"service_id"`
}

// Room represents a physical room, optionally owned by a department
type Room struct {
	ID           string  `json:"id"`
	RoomNumber   string  `json:"room_number"`
	DepartmentID *string `json:"department_id,omitempty"`
	Capacity     int     `json:"capacity"` // defaults to 1
	Available    bool    `json:"availability"`
}

// Appointment represents a booked slot between a patient and a doctor.
// The (doctor, date, time) tuple is unique.
type Appointment struct {
	ID        string            `json:"id"`
	PatientID string            `json:"patient_id"`
	DoctorID  string            `json:"doctor_id"`
	ClinicID  *string           `json:"clinic_id,omitempty"`
	RoomID    *string           `json:"room_id,omitempty"`
	Date      string            `json:"date"` // YYYY-MM-DD
	Time      string            `json:"time"` // HH:MM
	Status    AppointmentStatus `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Prescription represents the single prescription issued for an appointment
type Prescription struct {
	ID             string `json:"id"`
	AppointmentID  string `json:"appointment_id"`
	Medication     string `json:"medication"`
	Dosage         string `json:"dosage,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	Instructions   string `json:"instructions,omitempty"`
	PrescribedDate string `json:"prescribed_date,omitempty"` // YYYY-MM-DD
}

// MedicalRecord represents an entry in a patient's medical history,
// optionally linked to the appointment it was produced by
type MedicalRecord struct {
	ID            string  `json:"id"`
	PatientID     string  `json:"patient_id"`
	AppointmentID *string `json:"appointment_id,omitempty"`
	Diagnosis     string  `json:"diagnosis"`
	Notes         string  `json:"notes,omitempty"`
	RecordDate    string  `json:"record_date,omitempty"` // YYYY-MM-DD
}

// Payment represents a payment made against an appointment.
// An appointment may carry any number of payments.
type Payment struct {
	ID            string          `json:"id"`
	AppointmentID string          `json:"appointment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date,omitempty"` // YYYY-MM-DD
	Method        PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
}
