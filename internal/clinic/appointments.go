package clinic

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

func (r *Registry) validateAppointment(a *models.Appointment, selfID string) error {
	if a.PatientID == "" {
		return newValidation(models.EntityAppointment, "patient_id is required")
	}
	if _, ok := r.patients[a.PatientID]; !ok {
		return newValidation(models.EntityAppointment, "patient %q does not exist", a.PatientID)
	}
	if a.DoctorID == "" {
		return newValidation(models.EntityAppointment, "doctor_id is required")
	}
	if _, ok := r.doctors[a.DoctorID]; !ok {
		return newValidation(models.EntityAppointment, "doctor %q does not exist", a.DoctorID)
	}
	if a.ClinicID != nil {
		if _, ok := r.clinics[*a.ClinicID]; !ok {
			return newValidation(models.EntityAppointment, "clinic %q does not exist", *a.ClinicID)
		}
	}
	if a.RoomID != nil {
		if _, ok := r.rooms[*a.RoomID]; !ok {
			return newValidation(models.EntityAppointment, "room %q does not exist", *a.RoomID)
		}
	}
	if !validDate(a.Date) {
		return newValidation(models.EntityAppointment, "date must be YYYY-MM-DD")
	}
	if !validTime(a.Time) {
		return newValidation(models.EntityAppointment, "time must be HH:MM")
	}
	if !a.Status.Valid() {
		return newValidation(models.EntityAppointment, "status %q is not one of Scheduled, Completed, Cancelled", a.Status)
	}

	// Double-booking: no other appointment may hold the same doctor at the
	// same date and time.
	for id, existing := range r.appointments {
		if id == selfID {
			continue
		}
		if existing.DoctorID == a.DoctorID && existing.Date == a.Date && existing.Time == a.Time {
			return newConstraint(models.EntityAppointment, "double-booked: doctor %q already has an appointment at %s %s", a.DoctorID, a.Date, a.Time)
		}
	}
	return nil
}

// CreateAppointment books an appointment. The patient and doctor must exist,
// clinic and room too when given, and the doctor must be free at the slot.
// Status defaults to Scheduled.
func (r *Registry) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID != "" {
		if _, ok := r.appointments[a.ID]; ok {
			return newConstraint(models.EntityAppointment, "id %q already exists", a.ID)
		}
	}

	rec := cloneAppointment(*a)
	if rec.Status == "" {
		rec.Status = models.AppointmentScheduled
	}
	if err := r.validateAppointment(&rec, ""); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	if err := r.commit(ctx, models.EntityAppointment, []storage.Change{
		storage.Put(models.EntityAppointment, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.appointments[rec.ID] = rec
	*a = cloneAppointment(rec)
	return nil
}

// AppointmentUpdate is a partial update of an appointment
type AppointmentUpdate struct {
	PatientID   *string
	DoctorID    *string
	ClinicID    *string
	ClearClinic bool
	RoomID      *string
	ClearRoom   bool
	Date        *string
	Time        *string
	Status      *models.AppointmentStatus
	Notes       *string
}

// UpdateAppointment applies a partial update to an appointment. Moving the
// slot re-runs the double-booking check; status changes follow the lifecycle
// (Scheduled may complete or cancel, both of which are terminal).
func (r *Registry) UpdateAppointment(ctx context.Context, id string, upd AppointmentUpdate) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.appointments[id]
	if !ok {
		return nil, newNotFound(models.EntityAppointment, id)
	}

	next := cloneAppointment(cur)
	if upd.PatientID != nil {
		next.PatientID = *upd.PatientID
	}
	if upd.DoctorID != nil {
		next.DoctorID = *upd.DoctorID
	}
	if upd.ClearClinic {
		next.ClinicID = nil
	} else if upd.ClinicID != nil {
		next.ClinicID = cloneStr(upd.ClinicID)
	}
	if upd.ClearRoom {
		next.RoomID = nil
	} else if upd.RoomID != nil {
		next.RoomID = cloneStr(upd.RoomID)
	}
	if upd.Date != nil {
		next.Date = *upd.Date
	}
	if upd.Time != nil {
		next.Time = *upd.Time
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, newValidation(models.EntityAppointment, "status %q is not one of Scheduled, Completed, Cancelled", *upd.Status)
		}
		if !cur.Status.CanTransition(*upd.Status) {
			return nil, newConstraint(models.EntityAppointment, "cannot transition status from %s to %s", cur.Status, *upd.Status)
		}
		next.Status = *upd.Status
	}

	if err := r.validateAppointment(&next, id); err != nil {
		return nil, err
	}

	if err := r.commit(ctx, models.EntityAppointment, []storage.Change{
		storage.Put(models.EntityAppointment, id, next),
	}); err != nil {
		return nil, err
	}
	r.appointments[id] = next
	rec := cloneAppointment(next)
	return &rec, nil
}

// DeleteAppointment deletes an appointment and cascades to its prescription
// and payments; medical records referencing it survive with the link cleared.
func (r *Registry) DeleteAppointment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return newNotFound(models.EntityAppointment, id)
	}

	changes, mutate := r.appointmentCascade(id)
	changes = append(changes, storage.Delete(models.EntityAppointment, id))

	if err := r.commit(ctx, models.EntityAppointment, changes); err != nil {
		return err
	}
	mutate()
	delete(r.appointments, id)
	return nil
}

// appointmentCascade stages the cascade for deleting one appointment and
// returns the change list plus a closure applying it to in-memory state.
func (r *Registry) appointmentCascade(id string) ([]storage.Change, func()) {
	var changes []storage.Change
	var doomedPrescriptions, doomedPayments []string
	var detachedRecords []models.MedicalRecord

	for _, p := range r.prescriptions {
		if p.AppointmentID == id {
			doomedPrescriptions = append(doomedPrescriptions, p.ID)
			changes = append(changes, storage.Delete(models.EntityPrescription, p.ID))
		}
	}
	for _, p := range r.payments {
		if p.AppointmentID == id {
			doomedPayments = append(doomedPayments, p.ID)
			changes = append(changes, storage.Delete(models.EntityPayment, p.ID))
		}
	}
	for _, m := range r.medicalRecords {
		if m.AppointmentID != nil && *m.AppointmentID == id {
			m = cloneMedicalRecord(m)
			m.AppointmentID = nil
			detachedRecords = append(detachedRecords, m)
			changes = append(changes, storage.Put(models.EntityMedicalRecord, m.ID, m))
		}
	}

	mutate := func() {
		for _, pid := range doomedPrescriptions {
			delete(r.prescriptions, pid)
		}
		for _, pid := range doomedPayments {
			delete(r.payments, pid)
		}
		for _, m := range detachedRecords {
			r.medicalRecords[m.ID] = m
		}
	}
	return changes, mutate
}

// GetAppointment retrieves an appointment by id
func (r *Registry) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, newNotFound(models.EntityAppointment, id)
	}
	rec := cloneAppointment(a)
	return &rec, nil
}

// AppointmentFilter narrows an appointment listing
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	ClinicID  string
	Status    models.AppointmentStatus
	Date      string
}

// ListAppointments returns appointments matching the filter, ordered by
// date then time
func (r *Registry) ListAppointments(ctx context.Context, f AppointmentFilter) []*models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.Appointment
	for _, a := range r.appointments {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.ClinicID != "" && (a.ClinicID == nil || *a.ClinicID != f.ClinicID) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		rec := cloneAppointment(a)
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date < results[j].Date
		}
		return results[i].Time < results[j].Time
	})
	return results
}
