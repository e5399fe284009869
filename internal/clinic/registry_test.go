package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

// fakeStore records applied change sets and can be told to fail.
type fakeStore struct {
	snapshot *storage.Snapshot
	applied  [][]storage.Change
	failNext error
}

func (f *fakeStore) Load(ctx context.Context) (*storage.Snapshot, error) {
	if f.snapshot != nil {
		return f.snapshot, nil
	}
	return &storage.Snapshot{}, nil
}

func (f *fakeStore) Apply(ctx context.Context, changes []storage.Change) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.applied = append(f.applied, changes)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func TestRegistry_RestoreFromSnapshot(t *testing.T) {
	deptID := "dept-1"
	store := &fakeStore{snapshot: &storage.Snapshot{
		Departments: []models.Department{{ID: deptID, Name: "Cardiology"}},
		Doctors: []models.Doctor{{
			ID: "doc-1", FirstName: "Alice", LastName: "Johnson",
			Specialization: "Cardiology", Phone: "+1-555-0001",
			Email: "alice@clinic.test", DepartmentID: deptID,
		}},
	}}

	reg, err := New(context.Background(), store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if stats := reg.GetStats(); stats.Departments != 1 || stats.Doctors != 1 {
		t.Errorf("unexpected stats after restore: %+v", stats)
	}
	doc, err := reg.GetDoctor(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDoctor after restore failed: %v", err)
	}
	if doc.DepartmentID != deptID {
		t.Errorf("expected department %q, got %q", deptID, doc.DepartmentID)
	}
}

func TestRegistry_FailedCommitLeavesNoTrace(t *testing.T) {
	store := &fakeStore{}
	reg, err := New(context.Background(), store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	store.failNext = errors.New("disk full")
	input := &models.Department{Name: "Cardiology"}
	err = reg.CreateDepartment(ctx, input)
	if !IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if got := reg.GetStats().Departments; got != 0 {
		t.Errorf("failed create must not be visible, got %d departments", got)
	}
	if input.ID != "" {
		t.Errorf("failed create must not assign an id to the input, got %q", input.ID)
	}

	// The same request succeeds once the store recovers.
	if err := reg.CreateDepartment(ctx, &models.Department{Name: "Cardiology"}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := reg.GetStats().Departments; got != 1 {
		t.Errorf("expected 1 department after retry, got %d", got)
	}
}

func TestRegistry_FailedCommitLeavesInputUntouched(t *testing.T) {
	store := &fakeStore{}
	reg, err := New(context.Background(), store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	store.failNext = errors.New("disk full")
	p := &models.Patient{
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1980-05-14",
		Gender:      models.GenderMale,
		Phone:       "555-0201",
		Email:       "john.doe@mail.example",
	}
	if err := reg.CreatePatient(ctx, p); !IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if p.ID != "" || p.RegistrationDate != "" {
		t.Errorf("failed create must not write back id or defaults, got id %q registration_date %q", p.ID, p.RegistrationDate)
	}

	// A successful create fills both in.
	if err := reg.CreatePatient(ctx, p); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if p.ID == "" || p.RegistrationDate == "" {
		t.Errorf("successful create should write back id and defaults, got id %q registration_date %q", p.ID, p.RegistrationDate)
	}
}

func TestRegistry_FailedCascadeIsAtomic(t *testing.T) {
	store := &fakeStore{}
	reg, err := New(context.Background(), store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	dept := mustCreateDepartment(t, reg, "Cardiology")
	doc := mustCreateDoctor(t, reg, dept.ID, "Alice", "Johnson")
	pat := mustCreatePatient(t, reg, "John", "Doe")
	appt := mustCreateAppointment(t, reg, pat.ID, doc.ID, "2025-07-01", "09:00")
	presc := &models.Prescription{AppointmentID: appt.ID, Medication: "Lisinopril"}
	if err := reg.CreatePrescription(ctx, presc); err != nil {
		t.Fatalf("CreatePrescription failed: %v", err)
	}

	before := *reg.GetStats()
	store.failNext = errors.New("disk full")
	if err := reg.DeletePatient(ctx, pat.ID); !IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}

	if after := *reg.GetStats(); after != before {
		t.Errorf("failed cascade changed state: before %+v, after %+v", before, after)
	}
	if _, err := reg.GetPrescription(ctx, presc.ID); err != nil {
		t.Errorf("prescription should survive a failed cascade: %v", err)
	}
}

func TestRegistry_CommitCarriesCascade(t *testing.T) {
	store := &fakeStore{}
	reg, err := New(context.Background(), store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	dept := mustCreateDepartment(t, reg, "Cardiology")
	doc := mustCreateDoctor(t, reg, dept.ID, "Alice", "Johnson")
	pat := mustCreatePatient(t, reg, "John", "Doe")
	appt := mustCreateAppointment(t, reg, pat.ID, doc.ID, "2025-07-01", "09:00")
	if err := reg.CreatePrescription(ctx, &models.Prescription{AppointmentID: appt.ID, Medication: "Lisinopril"}); err != nil {
		t.Fatalf("CreatePrescription failed: %v", err)
	}

	store.applied = nil
	if err := reg.DeleteAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if len(store.applied) != 1 {
		t.Fatalf("cascade must reach the store as one change set, got %d", len(store.applied))
	}

	deletes := map[models.EntityType]int{}
	for _, ch := range store.applied[0] {
		if ch.Op == storage.OpDelete {
			deletes[ch.Entity]++
		}
	}
	if deletes[models.EntityAppointment] != 1 || deletes[models.EntityPrescription] != 1 {
		t.Errorf("unexpected delete set: %v", deletes)
	}
}

func TestRegistry_NilStore(t *testing.T) {
	reg, err := New(context.Background(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := reg.CreateDepartment(context.Background(), &models.Department{Name: "Cardiology"}); err != nil {
		t.Fatalf("in-memory create failed: %v", err)
	}
}
