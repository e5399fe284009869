package clinic

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

func (r *Registry) validatePatient(p *models.Patient, selfID string) error {
	if p.FirstName == "" || p.LastName == "" {
		return newValidation(models.EntityPatient, "first_name and last_name are required")
	}
	if p.DateOfBirth == "" || !validDate(p.DateOfBirth) {
		return newValidation(models.EntityPatient, "date_of_birth must be YYYY-MM-DD")
	}
	if !p.Gender.Valid() {
		return newValidation(models.EntityPatient, "gender %q is not one of M, F, Other", p.Gender)
	}
	if p.Phone == "" {
		return newValidation(models.EntityPatient, "phone is required")
	}
	if p.Email == "" {
		return newValidation(models.EntityPatient, "email is required")
	}
	if p.RegistrationDate != "" && !validDate(p.RegistrationDate) {
		return newValidation(models.EntityPatient, "registration_date must be YYYY-MM-DD")
	}
	for id, existing := range r.patients {
		if id == selfID {
			continue
		}
		if existing.Phone == p.Phone {
			return newConstraint(models.EntityPatient, "phone %q already in use", p.Phone)
		}
		if existing.Email == p.Email {
			return newConstraint(models.EntityPatient, "email %q already in use", p.Email)
		}
	}
	return nil
}

// CreatePatient registers a patient. Phone and email must be unique; the
// registration date defaults to the creation date.
func (r *Registry) CreatePatient(ctx context.Context, p *models.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID != "" {
		if _, ok := r.patients[p.ID]; ok {
			return newConstraint(models.EntityPatient, "id %q already exists", p.ID)
		}
	}

	rec := *p
	if rec.RegistrationDate == "" {
		rec.RegistrationDate = today()
	}
	if err := r.validatePatient(&rec, ""); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityPatient, []storage.Change{
		storage.Put(models.EntityPatient, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.patients[rec.ID] = rec
	*p = rec
	return nil
}

// PatientUpdate is a partial update of a patient
type PatientUpdate struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *string
	Gender      *models.Gender
	Phone       *string
	Email       *string
	Address     *string
}

// UpdatePatient applies a partial update to a patient
func (r *Registry) UpdatePatient(ctx context.Context, id string, upd PatientUpdate) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.patients[id]
	if !ok {
		return nil, newNotFound(models.EntityPatient, id)
	}

	next := cur
	if upd.FirstName != nil {
		next.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		next.LastName = *upd.LastName
	}
	if upd.DateOfBirth != nil {
		next.DateOfBirth = *upd.DateOfBirth
	}
	if upd.Gender != nil {
		next.Gender = *upd.Gender
	}
	if upd.Phone != nil {
		next.Phone = *upd.Phone
	}
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.Address != nil {
		next.Address = *upd.Address
	}

	if err := r.validatePatient(&next, id); err != nil {
		return nil, err
	}

	if err := r.commit(ctx, models.EntityPatient, []storage.Change{
		storage.Put(models.EntityPatient, id, next),
	}); err != nil {
		return nil, err
	}
	r.patients[id] = next
	rec := next
	return &rec, nil
}

// DeletePatient deletes a patient and cascades: every appointment of the
// patient goes away together with its prescription and payments, and every
// medical record of the patient is removed. Medical records linked only to a
// removed appointment keep existing with the link cleared, but records owned
// by the patient are deleted outright.
func (r *Registry) DeletePatient(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return newNotFound(models.EntityPatient, id)
	}

	doomedAppts := make(map[string]bool)
	for apptID, a := range r.appointments {
		if a.PatientID == id {
			doomedAppts[apptID] = true
		}
	}

	var changes []storage.Change
	var doomedPrescriptions, doomedPayments, doomedRecords []string
	var detachedRecords []models.MedicalRecord

	for _, p := range r.prescriptions {
		if doomedAppts[p.AppointmentID] {
			doomedPrescriptions = append(doomedPrescriptions, p.ID)
			changes = append(changes, storage.Delete(models.EntityPrescription, p.ID))
		}
	}
	for _, p := range r.payments {
		if doomedAppts[p.AppointmentID] {
			doomedPayments = append(doomedPayments, p.ID)
			changes = append(changes, storage.Delete(models.EntityPayment, p.ID))
		}
	}
	for _, m := range r.medicalRecords {
		switch {
		case m.PatientID == id:
			doomedRecords = append(doomedRecords, m.ID)
			changes = append(changes, storage.Delete(models.EntityMedicalRecord, m.ID))
		case m.AppointmentID != nil && doomedAppts[*m.AppointmentID]:
			m = cloneMedicalRecord(m)
			m.AppointmentID = nil
			detachedRecords = append(detachedRecords, m)
			changes = append(changes, storage.Put(models.EntityMedicalRecord, m.ID, m))
		}
	}
	for apptID := range doomedAppts {
		changes = append(changes, storage.Delete(models.EntityAppointment, apptID))
	}
	changes = append(changes, storage.Delete(models.EntityPatient, id))

	if err := r.commit(ctx, models.EntityPatient, changes); err != nil {
		return err
	}

	for _, pid := range doomedPrescriptions {
		delete(r.prescriptions, pid)
	}
	for _, pid := range doomedPayments {
		delete(r.payments, pid)
	}
	for _, mid := range doomedRecords {
		delete(r.medicalRecords, mid)
	}
	for _, m := range detachedRecords {
		r.medicalRecords[m.ID] = m
	}
	for apptID := range doomedAppts {
		delete(r.appointments, apptID)
	}
	delete(r.patients, id)
	return nil
}

// GetPatient retrieves a patient by id
func (r *Registry) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, newNotFound(models.EntityPatient, id)
	}
	rec := p
	return &rec, nil
}

// ListPatients returns all patients ordered by last then first name
func (r *Registry) ListPatients(ctx context.Context) []*models.Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		rec := p
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].LastName != results[j].LastName {
			return results[i].LastName < results[j].LastName
		}
		return results[i].FirstName < results[j].FirstName
	})
	return results
}

func (r *Registry) validateDoctor(d *models.Doctor, selfID string) error {
	if d.FirstName == "" || d.LastName == "" {
		return newValidation(models.EntityDoctor, "first_name and last_name are required")
	}
	if d.DepartmentID == "" {
		return newValidation(models.EntityDoctor, "department_id is required")
	}
	if _, ok := r.departments[d.DepartmentID]; !ok {
		return newValidation(models.EntityDoctor, "department %q does not exist", d.DepartmentID)
	}
	if d.Phone == "" {
		return newValidation(models.EntityDoctor, "phone is required")
	}
	if d.Email == "" {
		return newValidation(models.EntityDoctor, "email is required")
	}
	if d.HireDate != "" && !validDate(d.HireDate) {
		return newValidation(models.EntityDoctor, "hire_date must be YYYY-MM-DD")
	}
	for id, existing := range r.doctors {
		if id == selfID {
			continue
		}
		if existing.Phone == d.Phone {
			return newConstraint(models.EntityDoctor, "phone %q already in use", d.Phone)
		}
		if existing.Email == d.Email {
			return newConstraint(models.EntityDoctor, "email %q already in use", d.Email)
		}
	}
	return nil
}

// CreateDoctor creates a doctor. The owning department must exist; phone and
// email must be unique.
func (r *Registry) CreateDoctor(ctx context.Context, d *models.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID != "" {
		if _, ok := r.doctors[d.ID]; ok {
			return newConstraint(models.EntityDoctor, "id %q already exists", d.ID)
		}
	}
	if err := r.validateDoctor(d, ""); err != nil {
		return err
	}

	rec := *d
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityDoctor, []storage.Change{
		storage.Put(models.EntityDoctor, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.doctors[rec.ID] = rec
	*d = rec
	return nil
}

// DoctorUpdate is a partial update of a doctor
type DoctorUpdate struct {
	FirstName      *string
	LastName       *string
	Specialization *string
	DepartmentID   *string
	Phone          *string
	Email          *string
	HireDate       *string
}

// UpdateDoctor applies a partial update to a doctor
func (r *Registry) UpdateDoctor(ctx context.Context, id string, upd DoctorUpdate) (*models.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.doctors[id]
	if !ok {
		return nil, newNotFound(models.EntityDoctor, id)
	}

	next := cur
	if upd.FirstName != nil {
		next.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		next.LastName = *upd.LastName
	}
	if upd.Specialization != nil {
		next.Specialization = *upd.Specialization
	}
	if upd.DepartmentID != nil {
		next.DepartmentID = *upd.DepartmentID
	}
	if upd.Phone != nil {
		next.Phone = *upd.Phone
	}
	if upd.Email != nil {
		next.Email = *upd.Email
	}
	if upd.HireDate != nil {
		next.HireDate = *upd.HireDate
	}

	if err := r.validateDoctor(&next, id); err != nil {
		return nil, err
	}

	if err := r.commit(ctx, models.EntityDoctor, []storage.Change{
		storage.Put(models.EntityDoctor, id, next),
	}); err != nil {
		return nil, err
	}
	r.doctors[id] = next
	rec := next
	return &rec, nil
}

// DeleteDoctor deletes a doctor. The delete is blocked while any appointment
// references the doctor, so appointment history is preserved; doctor-service
// links are removed with the doctor.
func (r *Registry) DeleteDoctor(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctors[id]; !ok {
		return newNotFound(models.EntityDoctor, id)
	}
	for _, a := range r.appointments {
		if a.DoctorID == id {
			return newConstraint(models.EntityDoctor, "appointments still reference doctor %q", id)
		}
	}

	var changes []storage.Change
	var linkIDs []string
	for _, ds := range r.doctorServices {
		if ds.DoctorID == id {
			linkIDs = append(linkIDs, ds.ID)
			changes = append(changes, storage.Delete(models.EntityDoctorService, ds.ID))
		}
	}
	changes = append(changes, storage.Delete(models.EntityDoctor, id))

	if err := r.commit(ctx, models.EntityDoctor, changes); err != nil {
		return err
	}
	for _, linkID := range linkIDs {
		delete(r.doctorServices, linkID)
	}
	delete(r.doctors, id)
	return nil
}

// GetDoctor retrieves a doctor by id
func (r *Registry) GetDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, newNotFound(models.EntityDoctor, id)
	}
	rec := d
	return &rec, nil
}

// DoctorFilter narrows a doctor listing
type DoctorFilter struct {
	DepartmentID string
}

// ListDoctors returns doctors matching the filter, ordered by last then
// first name
func (r *Registry) ListDoctors(ctx context.Context, f DoctorFilter) []*models.Doctor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.Doctor
	for _, d := range r.doctors {
		if f.DepartmentID != "" && d.DepartmentID != f.DepartmentID {
			continue
		}
		rec := d
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].LastName != results[j].LastName {
			return results[i].LastName < results[j].LastName
		}
		return results[i].FirstName < results[j].FirstName
	})
	return results
}
