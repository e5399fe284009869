package clinic

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

// CreatePrescription issues the prescription for an appointment. An
// appointment carries at most one prescription.
func (r *Registry) CreatePrescription(ctx context.Context, p *models.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID != "" {
		if _, ok := r.prescriptions[p.ID]; ok {
			return newConstraint(models.EntityPrescription, "id %q already exists", p.ID)
		}
	}
	if p.AppointmentID == "" {
		return newValidation(models.EntityPrescription, "appointment_id is required")
	}
	if _, ok := r.appointments[p.AppointmentID]; !ok {
		return newValidation(models.EntityPrescription, "appointment %q does not exist", p.AppointmentID)
	}
	if p.Medication == "" {
		return newValidation(models.EntityPrescription, "medication is required")
	}
	if p.PrescribedDate != "" && !validDate(p.PrescribedDate) {
		return newValidation(models.EntityPrescription, "prescribed_date must be YYYY-MM-DD")
	}
	for _, existing := range r.prescriptions {
		if existing.AppointmentID == p.AppointmentID {
			return newConstraint(models.EntityPrescription, "appointment %q already has a prescription", p.AppointmentID)
		}
	}

	rec := *p
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityPrescription, []storage.Change{
		storage.Put(models.EntityPrescription, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.prescriptions[rec.ID] = rec
	*p = rec
	return nil
}

// PrescriptionUpdate is a partial update of a prescription
type PrescriptionUpdate struct {
	Medication     *string
	Dosage         *string
	Frequency      *string
	Instructions   *string
	PrescribedDate *string
}

// UpdatePrescription applies a partial update to a prescription
func (r *Registry) UpdatePrescription(ctx context.Context, id string, upd PrescriptionUpdate) (*models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.prescriptions[id]
	if !ok {
		return nil, newNotFound(models.EntityPrescription, id)
	}

	next := cur
	if upd.Medication != nil {
		next.Medication = *upd.Medication
	}
	if upd.Dosage != nil {
		next.Dosage = *upd.Dosage
	}
	if upd.Frequency != nil {
		next.Frequency = *upd.Frequency
	}
	if upd.Instructions != nil {
		next.Instructions = *upd.Instructions
	}
	if upd.PrescribedDate != nil {
		next.PrescribedDate = *upd.PrescribedDate
	}

	if next.Medication == "" {
		return nil, newValidation(models.EntityPrescription, "medication is required")
	}
	if next.PrescribedDate != "" && !validDate(next.PrescribedDate) {
		return nil, newValidation(models.EntityPrescription, "prescribed_date must be YYYY-MM-DD")
	}

	if err := r.commit(ctx, models.EntityPrescription, []storage.Change{
		storage.Put(models.EntityPrescription, id, next),
	}); err != nil {
		return nil, err
	}
	r.prescriptions[id] = next
	rec := next
	return &rec, nil
}

// DeletePrescription removes a prescription
func (r *Registry) DeletePrescription(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prescriptions[id]; !ok {
		return newNotFound(models.EntityPrescription, id)
	}

	if err := r.commit(ctx, models.EntityPrescription, []storage.Change{
		storage.Delete(models.EntityPrescription, id),
	}); err != nil {
		return err
	}
	delete(r.prescriptions, id)
	return nil
}

// GetPrescription retrieves a prescription by id
func (r *Registry) GetPrescription(ctx context.Context, id string) (*models.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prescriptions[id]
	if !ok {
		return nil, newNotFound(models.EntityPrescription, id)
	}
	rec := p
	return &rec, nil
}

// GetPrescriptionByAppointment retrieves the prescription issued for an
// appointment, if any
func (r *Registry) GetPrescriptionByAppointment(ctx context.Context, appointmentID string) (*models.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.prescriptions {
		if p.AppointmentID == appointmentID {
			rec := p
			return &rec, nil
		}
	}
	return nil, newNotFound(models.EntityPrescription, appointmentID)
}

// ListPrescriptions returns all prescriptions ordered by id
func (r *Registry) ListPrescriptions(ctx context.Context) []*models.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Prescription, 0, len(r.prescriptions))
	for _, p := range r.prescriptions {
		rec := p
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// CreateMedicalRecord files a medical record for a patient, optionally
// linked to one appointment
func (r *Registry) CreateMedicalRecord(ctx context.Context, m *models.MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID != "" {
		if _, ok := r.medicalRecords[m.ID]; ok {
			return newConstraint(models.EntityMedicalRecord, "id %q already exists", m.ID)
		}
	}
	if m.PatientID == "" {
		return newValidation(models.EntityMedicalRecord, "patient_id is required")
	}
	if _, ok := r.patients[m.PatientID]; !ok {
		return newValidation(models.EntityMedicalRecord, "patient %q does not exist", m.PatientID)
	}
	if m.AppointmentID != nil {
		if _, ok := r.appointments[*m.AppointmentID]; !ok {
			return newValidation(models.EntityMedicalRecord, "appointment %q does not exist", *m.AppointmentID)
		}
	}
	if m.Diagnosis == "" {
		return newValidation(models.EntityMedicalRecord, "diagnosis is required")
	}
	if m.RecordDate != "" && !validDate(m.RecordDate) {
		return newValidation(models.EntityMedicalRecord, "record_date must be YYYY-MM-DD")
	}

	rec := cloneMedicalRecord(*m)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityMedicalRecord, []storage.Change{
		storage.Put(models.EntityMedicalRecord, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.medicalRecords[rec.ID] = rec
	*m = cloneMedicalRecord(rec)
	return nil
}

// MedicalRecordUpdate is a partial update of a medical record
type MedicalRecordUpdate struct {
	AppointmentID    *string
	ClearAppointment bool
	Diagnosis        *string
	Notes            *string
	RecordDate       *string
}

// UpdateMedicalRecord applies a partial update to a medical record
func (r *Registry) UpdateMedicalRecord(ctx context.Context, id string, upd MedicalRecordUpdate) (*models.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.medicalRecords[id]
	if !ok {
		return nil, newNotFound(models.EntityMedicalRecord, id)
	}

	next := cloneMedicalRecord(cur)
	if upd.ClearAppointment {
		next.AppointmentID = nil
	} else if upd.AppointmentID != nil {
		next.AppointmentID = cloneStr(upd.AppointmentID)
	}
	if upd.Diagnosis != nil {
		next.Diagnosis = *upd.Diagnosis
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}
	if upd.RecordDate != nil {
		next.RecordDate = *upd.RecordDate
	}

	if next.AppointmentID != nil {
		if _, ok := r.appointments[*next.AppointmentID]; !ok {
			return nil, newValidation(models.EntityMedicalRecord, "appointment %q does not exist", *next.AppointmentID)
		}
	}
	if next.Diagnosis == "" {
		return nil, newValidation(models.EntityMedicalRecord, "diagnosis is required")
	}
	if next.RecordDate != "" && !validDate(next.RecordDate) {
		return nil, newValidation(models.EntityMedicalRecord, "record_date must be YYYY-MM-DD")
	}

	if err := r.commit(ctx, models.EntityMedicalRecord, []storage.Change{
		storage.Put(models.EntityMedicalRecord, id, next),
	}); err != nil {
		return nil, err
	}
	r.medicalRecords[id] = next
	rec := cloneMedicalRecord(next)
	return &rec, nil
}

// DeleteMedicalRecord removes a medical record
func (r *Registry) DeleteMedicalRecord(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.medicalRecords[id]; !ok {
		return newNotFound(models.EntityMedicalRecord, id)
	}

	if err := r.commit(ctx, models.EntityMedicalRecord, []storage.Change{
		storage.Delete(models.EntityMedicalRecord, id),
	}); err != nil {
		return err
	}
	delete(r.medicalRecords, id)
	return nil
}

// GetMedicalRecord retrieves a medical record by id
func (r *Registry) GetMedicalRecord(ctx context.Context, id string) (*models.MedicalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.medicalRecords[id]
	if !ok {
		return nil, newNotFound(models.EntityMedicalRecord, id)
	}
	rec := cloneMedicalRecord(m)
	return &rec, nil
}

// MedicalRecordFilter narrows a medical record listing
type MedicalRecordFilter struct {
	PatientID     string
	AppointmentID string
}

// ListMedicalRecords returns medical records matching the filter, ordered by
// record date
func (r *Registry) ListMedicalRecords(ctx context.Context, f MedicalRecordFilter) []*models.MedicalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.MedicalRecord
	for _, m := range r.medicalRecords {
		if f.PatientID != "" && m.PatientID != f.PatientID {
			continue
		}
		if f.AppointmentID != "" && (m.AppointmentID == nil || *m.AppointmentID != f.AppointmentID) {
			continue
		}
		rec := cloneMedicalRecord(m)
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].RecordDate != results[j].RecordDate {
			return results[i].RecordDate < results[j].RecordDate
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// CreatePayment records a payment against an appointment. The amount must be
// strictly positive; status defaults to Pending.
func (r *Registry) CreatePayment(ctx context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID != "" {
		if _, ok := r.payments[p.ID]; ok {
			return newConstraint(models.EntityPayment, "id %q already exists", p.ID)
		}
	}
	if p.AppointmentID == "" {
		return newValidation(models.EntityPayment, "appointment_id is required")
	}
	if _, ok := r.appointments[p.AppointmentID]; !ok {
		return newValidation(models.EntityPayment, "appointment %q does not exist", p.AppointmentID)
	}
	if !p.Amount.IsPositive() {
		return newValidation(models.EntityPayment, "amount must be positive")
	}
	if !p.Method.Valid() {
		return newValidation(models.EntityPayment, "payment_method %q is not one of Cash, Card, Insurance, Online", p.Method)
	}

	rec := *p
	if rec.Status == "" {
		rec.Status = models.PaymentPending
	}
	if !rec.Status.Valid() {
		return newValidation(models.EntityPayment, "status %q is not one of Pending, Paid, Refunded", rec.Status)
	}
	if rec.PaymentDate != "" && !validDate(rec.PaymentDate) {
		return newValidation(models.EntityPayment, "payment_date must be YYYY-MM-DD")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityPayment, []storage.Change{
		storage.Put(models.EntityPayment, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.payments[rec.ID] = rec
	*p = rec
	return nil
}

// PaymentUpdate is a partial update of a payment
type PaymentUpdate struct {
	Amount      *decimal.Decimal
	PaymentDate *string
	Method      *models.PaymentMethod
	Status      *models.PaymentStatus
}

// UpdatePayment applies a partial update to a payment
func (r *Registry) UpdatePayment(ctx context.Context, id string, upd PaymentUpdate) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.payments[id]
	if !ok {
		return nil, newNotFound(models.EntityPayment, id)
	}

	next := cur
	if upd.Amount != nil {
		next.Amount = *upd.Amount
	}
	if upd.PaymentDate != nil {
		next.PaymentDate = *upd.PaymentDate
	}
	if upd.Method != nil {
		next.Method = *upd.Method
	}
	if upd.Status != nil {
		next.Status = *upd.Status
	}

	if !next.Amount.IsPositive() {
		return nil, newValidation(models.EntityPayment, "amount must be positive")
	}
	if !next.Method.Valid() {
		return nil, newValidation(models.EntityPayment, "payment_method %q is not one of Cash, Card, Insurance, Online", next.Method)
	}
	if !next.Status.Valid() {
		return nil, newValidation(models.EntityPayment, "status %q is not one of Pending, Paid, Refunded", next.Status)
	}
	if next.PaymentDate != "" && !validDate(next.PaymentDate) {
		return nil, newValidation(models.EntityPayment, "payment_date must be YYYY-MM-DD")
	}

	if err := r.commit(ctx, models.EntityPayment, []storage.Change{
		storage.Put(models.EntityPayment, id, next),
	}); err != nil {
		return nil, err
	}
	r.payments[id] = next
	rec := next
	return &rec, nil
}

// DeletePayment removes a payment
func (r *Registry) DeletePayment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[id]; !ok {
		return newNotFound(models.EntityPayment, id)
	}

	if err := r.commit(ctx, models.EntityPayment, []storage.Change{
		storage.Delete(models.EntityPayment, id),
	}); err != nil {
		return err
	}
	delete(r.payments, id)
	return nil
}

// GetPayment retrieves a payment by id
func (r *Registry) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, newNotFound(models.EntityPayment, id)
	}
	rec := p
	return &rec, nil
}

// PaymentFilter narrows a payment listing
type PaymentFilter struct {
	AppointmentID string
	Status        models.PaymentStatus
}

// ListPayments returns payments matching the filter ordered by payment date
func (r *Registry) ListPayments(ctx context.Context, f PaymentFilter) []*models.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.Payment
	for _, p := range r.payments {
		if f.AppointmentID != "" && p.AppointmentID != f.AppointmentID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		rec := p
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].PaymentDate != results[j].PaymentDate {
			return results[i].PaymentDate < results[j].PaymentDate
		}
		return results[i].ID < results[j].ID
	})
	return results
}
