package storage

import (
	"context"

	"github.com/savegress/clinicore/pkg/models"
)

// Op is a mutation operation within a change set
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Change is a single record mutation. A registry operation that cascades
// produces one change per affected record; the store applies the whole set
// atomically.
type Change struct {
	Op     Op
	Entity models.EntityType
	ID     string
	Record any // populated for OpPut
}

// Put builds an upsert change for a record
func Put(entity models.EntityType, id string, record any) Change {
	return Change{Op: OpPut, Entity: entity, ID: id, Record: record}
}

// Delete builds a delete change for a record
func Delete(entity models.EntityType, id string) Change {
	return Change{Op: OpDelete, Entity: entity, ID: id}
}

// Snapshot is the full persisted state of the clinic model
type Snapshot struct {
	Departments    []models.Department
	Clinics        []models.Clinic
	Patients       []models.Patient
	Doctors        []models.Doctor
	Services       []models.Service
	DoctorServices []models.DoctorService
	Rooms          []models.Room
	Appointments   []models.Appointment
	Prescriptions  []models.Prescription
	MedicalRecords []models.MedicalRecord
	Payments       []models.Payment
}

// Store is the interface for clinic persistence backends
type Store interface {
	// Load reads the full persisted state
	Load(ctx context.Context) (*Snapshot, error)

	// Apply applies a change set atomically: either every change in the
	// set is persisted or none is
	Apply(ctx context.Context, changes []Change) error

	// Close closes the store
	Close() error
}
