package clinic

import (
	"context"
	"sync"
	"time"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Registry is the clinic domain model. It owns the canonical entity state,
// enforces every uniqueness, referential-integrity and lifecycle rule on each
// mutation, and writes committed change sets through to an optional store.
//
// A single lock serializes mutations so a constraint check and the write it
// guards are one atomic unit; reads never observe a partially applied cascade.
type Registry struct {
	mu    sync.RWMutex
	store storage.Store

	departments    map[string]models.Department
	clinics        map[string]models.Clinic
	patients       map[string]models.Patient
	doctors        map[string]models.Doctor
	services       map[string]models.Service
	doctorServices map[string]models.DoctorService
	rooms          map[string]models.Room
	appointments   map[string]models.Appointment
	prescriptions  map[string]models.Prescription
	medicalRecords map[string]models.MedicalRecord
	payments       map[string]models.Payment
}

// New creates a registry backed by store. A nil store keeps all state in
// memory only. With a store, existing state is restored from it.
func New(ctx context.Context, store storage.Store) (*Registry, error) {
	r := &Registry{
		store:          store,
		departments:    make(map[string]models.Department),
		clinics:        make(map[string]models.Clinic),
		patients:       make(map[string]models.Patient),
		doctors:        make(map[string]models.Doctor),
		services:       make(map[string]models.Service),
		doctorServices: make(map[string]models.DoctorService),
		rooms:          make(map[string]models.Room),
		appointments:   make(map[string]models.Appointment),
		prescriptions:  make(map[string]models.Prescription),
		medicalRecords: make(map[string]models.MedicalRecord),
		payments:       make(map[string]models.Payment),
	}

	if store != nil {
		snap, err := store.Load(ctx)
		if err != nil {
			return nil, newStorage("", err)
		}
		r.restore(snap)
	}

	return r, nil
}

func (r *Registry) restore(snap *storage.Snapshot) {
	for _, d := range snap.Departments {
		r.departments[d.ID] = d
	}
	for _, c := range snap.Clinics {
		r.clinics[c.ID] = c
	}
	for _, p := range snap.Patients {
		r.patients[p.ID] = p
	}
	for _, d := range snap.Doctors {
		r.doctors[d.ID] = d
	}
	for _, s := range snap.Services {
		r.services[s.ID] = s
	}
	for _, ds := range snap.DoctorServices {
		r.doctorServices[ds.ID] = ds
	}
	for _, rm := range snap.Rooms {
		r.rooms[rm.ID] = rm
	}
	for _, a := range snap.Appointments {
		r.appointments[a.ID] = a
	}
	for _, p := range snap.Prescriptions {
		r.prescriptions[p.ID] = p
	}
	for _, m := range snap.MedicalRecords {
		r.medicalRecords[m.ID] = m
	}
	for _, p := range snap.Payments {
		r.payments[p.ID] = p
	}
}

// commit persists a change set. In-memory state must only be mutated after
// commit returns nil, so a failed write leaves no trace.
func (r *Registry) commit(ctx context.Context, entity models.EntityType, changes []storage.Change) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Apply(ctx, changes); err != nil {
		return newStorage(entity, err)
	}
	return nil
}

// Stats summarises the registry contents
type Stats struct {
	Departments    int `json:"departments"`
	Clinics        int `json:"clinics"`
	Patients       int `json:"patients"`
	Doctors        int `json:"doctors"`
	Services       int `json:"services"`
	DoctorServices int `json:"doctor_services"`
	Rooms          int `json:"rooms"`
	Appointments   int `json:"appointments"`
	Prescriptions  int `json:"prescriptions"`
	MedicalRecords int `json:"medical_records"`
	Payments       int `json:"payments"`
}

// GetStats returns record counts per entity type
func (r *Registry) GetStats() *Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Stats{
		Departments:    len(r.departments),
		Clinics:        len(r.clinics),
		Patients:       len(r.patients),
		Doctors:        len(r.doctors),
		Services:       len(r.services),
		DoctorServices: len(r.doctorServices),
		Rooms:          len(r.rooms),
		Appointments:   len(r.appointments),
		Prescriptions:  len(r.prescriptions),
		MedicalRecords: len(r.medicalRecords),
		Payments:       len(r.payments),
	}
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func validTime(s string) bool {
	_, err := time.Parse(timeLayout, s)
	return err == nil
}

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func cloneRoom(rm models.Room) models.Room {
	rm.DepartmentID = cloneStr(rm.DepartmentID)
	return rm
}

func cloneAppointment(a models.Appointment) models.Appointment {
	a.ClinicID = cloneStr(a.ClinicID)
	a.RoomID = cloneStr(a.RoomID)
	return a
}

func cloneMedicalRecord(m models.MedicalRecord) models.MedicalRecord {
	m.AppointmentID = cloneStr(m.AppointmentID)
	return m
}
