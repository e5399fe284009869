package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/pkg/models"
)

func newTestStore(t *testing.T) *EmbeddedStore {
	t.Helper()
	store, err := NewEmbeddedStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewEmbeddedStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEmbeddedStore_ApplyLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deptID := "dept-1"
	price, _ := decimal.NewFromString("50.00")
	clinicID := "clinic-1"
	createdAt := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	changes := []Change{
		Put(models.EntityDepartment, deptID, models.Department{ID: deptID, Name: "Cardiology", Description: "Heart care"}),
		Put(models.EntityClinic, clinicID, models.Clinic{ID: clinicID, Name: "City Health Center", Location: "Downtown"}),
		Put(models.EntityPatient, "pat-1", models.Patient{
			ID: "pat-1", FirstName: "John", LastName: "Doe",
			DateOfBirth: "1985-04-12", Gender: models.GenderMale,
			Phone: "+1-555-0101", Email: "john@clinic.test",
			RegistrationDate: "2025-06-01",
		}),
		Put(models.EntityDoctor, "doc-1", models.Doctor{
			ID: "doc-1", FirstName: "Alice", LastName: "Johnson",
			Specialization: "Cardiology", DepartmentID: deptID,
			Phone: "+1-555-0001", Email: "alice@clinic.test",
		}),
		Put(models.EntityService, "svc-1", models.Service{ID: "svc-1", Name: "Consultation", Price: price}),
		Put(models.EntityDoctorService, "ds-1", models.DoctorService{ID: "ds-1", DoctorID: "doc-1", ServiceID: "svc-1"}),
		Put(models.EntityRoom, "room-1", models.Room{ID: "room-1", RoomNumber: "101", DepartmentID: &deptID, Capacity: 2, Available: true}),
		Put(models.EntityAppointment, "appt-1", models.Appointment{
			ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1",
			ClinicID: &clinicID, Date: "2025-07-01", Time: "09:00",
			Status: models.AppointmentScheduled, CreatedAt: createdAt,
		}),
		Put(models.EntityPrescription, "rx-1", models.Prescription{ID: "rx-1", AppointmentID: "appt-1", Medication: "Lisinopril", Dosage: "10mg"}),
		Put(models.EntityMedicalRecord, "rec-1", models.MedicalRecord{ID: "rec-1", PatientID: "pat-1", Diagnosis: "Hypertension"}),
		Put(models.EntityPayment, "pay-1", models.Payment{
			ID: "pay-1", AppointmentID: "appt-1", Amount: price,
			Method: models.PaymentMethodCash, Status: models.PaymentPaid,
		}),
	}
	if err := store.Apply(ctx, changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(snap.Departments) != 1 || snap.Departments[0].Name != "Cardiology" {
		t.Errorf("departments: %+v", snap.Departments)
	}
	if len(snap.Rooms) != 1 || snap.Rooms[0].DepartmentID == nil || *snap.Rooms[0].DepartmentID != deptID {
		t.Errorf("rooms: %+v", snap.Rooms)
	}
	if len(snap.Appointments) != 1 {
		t.Fatalf("appointments: %+v", snap.Appointments)
	}
	a := snap.Appointments[0]
	if a.ClinicID == nil || *a.ClinicID != clinicID || a.RoomID != nil {
		t.Errorf("appointment refs: clinic %v room %v", a.ClinicID, a.RoomID)
	}
	if !a.CreatedAt.Equal(createdAt) {
		t.Errorf("created_at: got %v, want %v", a.CreatedAt, createdAt)
	}
	if len(snap.Services) != 1 || !snap.Services[0].Price.Equal(price) {
		t.Errorf("services: %+v", snap.Services)
	}
	if len(snap.Payments) != 1 || !snap.Payments[0].Amount.Equal(price) {
		t.Errorf("payments: %+v", snap.Payments)
	}
	if len(snap.MedicalRecords) != 1 || snap.MedicalRecords[0].AppointmentID != nil {
		t.Errorf("medical records: %+v", snap.MedicalRecords)
	}
}

func TestEmbeddedStore_PutIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := models.Department{ID: "dept-1", Name: "Cardiology"}
	if err := store.Apply(ctx, []Change{Put(models.EntityDepartment, d.ID, d)}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	d.Description = "Heart care"
	if err := store.Apply(ctx, []Change{Put(models.EntityDepartment, d.ID, d)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.Departments) != 1 || snap.Departments[0].Description != "Heart care" {
		t.Errorf("expected single upserted row, got %+v", snap.Departments)
	}
}

func TestEmbeddedStore_DeleteAndReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewEmbeddedStore(dir)
	if err != nil {
		t.Fatalf("NewEmbeddedStore failed: %v", err)
	}
	if err := store.Apply(ctx, []Change{
		Put(models.EntityDepartment, "dept-1", models.Department{ID: "dept-1", Name: "Cardiology"}),
		Put(models.EntityDepartment, "dept-2", models.Department{ID: "dept-2", Name: "Pediatrics"}),
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := store.Apply(ctx, []Change{Delete(models.EntityDepartment, "dept-1")}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening the same directory sees only the surviving row.
	reopened, err := NewEmbeddedStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.Departments) != 1 || snap.Departments[0].ID != "dept-2" {
		t.Errorf("expected only dept-2, got %+v", snap.Departments)
	}
}

func TestEmbeddedStore_BadChangeRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Apply(ctx, []Change{
		Put(models.EntityDepartment, "dept-1", models.Department{ID: "dept-1", Name: "Cardiology"}),
		{Op: "rename", Entity: models.EntityDepartment, ID: "dept-1"},
	})
	if err == nil {
		t.Fatal("expected error for unknown op")
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(snap.Departments) != 0 {
		t.Errorf("failed change set must not persist anything, got %+v", snap.Departments)
	}
}
