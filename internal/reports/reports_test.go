package reports

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/internal/clinic"
	"github.com/savegress/clinicore/internal/seed"
	"github.com/savegress/clinicore/pkg/models"
)

func seededReporter(t *testing.T) (*Reporter, *clinic.Registry) {
	t.Helper()
	reg, err := clinic.New(context.Background(), nil)
	if err != nil {
		t.Fatalf("clinic.New failed: %v", err)
	}
	if err := seed.Load(context.Background(), reg); err != nil {
		t.Fatalf("seed.Load failed: %v", err)
	}
	return NewReporter(reg), reg
}

func TestUpcomingAppointments(t *testing.T) {
	rep, _ := seededReporter(t)

	rows := rep.UpcomingAppointments(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 upcoming appointments, got %d", len(rows))
	}
	first, second := rows[0], rows[1]
	if first.Time != "09:00" || second.Time != "10:00" {
		t.Errorf("expected date/time order, got %s then %s", first.Time, second.Time)
	}
	if first.PatientName != "John Doe" || first.DoctorName != "Alice Johnson" {
		t.Errorf("first row names: %+v", first)
	}
	if first.ClinicName != "City Health Center" || first.RoomNumber != "101" {
		t.Errorf("first row location: %+v", first)
	}
}

func TestUpcomingAppointments_ExcludesTerminal(t *testing.T) {
	rep, reg := seededReporter(t)
	ctx := context.Background()

	rows := rep.UpcomingAppointments(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 upcoming appointments, got %d", len(rows))
	}
	completed := models.AppointmentCompleted
	if _, err := reg.UpdateAppointment(ctx, rows[0].AppointmentID, clinic.AppointmentUpdate{Status: &completed}); err != nil {
		t.Fatalf("UpdateAppointment failed: %v", err)
	}

	rows = rep.UpcomingAppointments(ctx)
	if len(rows) != 1 {
		t.Fatalf("expected 1 upcoming appointment after completion, got %d", len(rows))
	}
}

func TestDoctorWorkloads(t *testing.T) {
	rep, _ := seededReporter(t)

	rows := rep.DoctorWorkloads(context.Background())
	byName := make(map[string]DoctorWorkload)
	for _, w := range rows {
		byName[w.DoctorName] = w
	}
	if w := byName["Alice Johnson"]; w.Patients != 1 || w.Appointments != 1 {
		t.Errorf("Johnson workload: %+v", w)
	}
	if w := byName["Bob Lee"]; w.Patients != 1 || w.Appointments != 1 {
		t.Errorf("Lee workload: %+v", w)
	}
}

func TestPatientPrescriptions(t *testing.T) {
	rep, reg := seededReporter(t)
	ctx := context.Background()

	patients := reg.ListPatients(ctx)
	var doe *models.Patient
	for _, p := range patients {
		if p.LastName == "Doe" {
			doe = p
		}
	}
	if doe == nil {
		t.Fatal("seed patient Doe not found")
	}

	rows, err := rep.PatientPrescriptions(ctx, doe.ID)
	if err != nil {
		t.Fatalf("PatientPrescriptions failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Medication != "Lisinopril" {
		t.Errorf("expected one Lisinopril prescription, got %+v", rows)
	}

	if _, err := rep.PatientPrescriptions(ctx, "missing"); !clinic.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestPaidTotalsByDoctor(t *testing.T) {
	rep, _ := seededReporter(t)

	rows := rep.PaidTotalsByDoctor(context.Background())
	byName := make(map[string]decimal.Decimal)
	for _, r := range rows {
		byName[r.DoctorName] = r.TotalPaid
	}
	// The pending 100.00 online payment must be excluded.
	if got := byName["Alice Johnson"]; !got.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("Johnson total: got %s", got)
	}
	if got := byName["Bob Lee"]; !got.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("Lee total: got %s", got)
	}
}

func TestAppointmentsByDepartment(t *testing.T) {
	rep, _ := seededReporter(t)

	rows := rep.AppointmentsByDepartment(context.Background())
	byName := make(map[string]int)
	for _, r := range rows {
		byName[r.DepartmentName] = r.Appointments
	}
	if byName["Cardiology"] != 1 || byName["Pediatrics"] != 1 {
		t.Errorf("unexpected counts: %v", byName)
	}
	// Orthopedics has no doctors booked but still appears.
	if got, ok := byName["Orthopedics"]; !ok || got != 0 {
		t.Errorf("Orthopedics should report zero, got %d (present %v)", got, ok)
	}
}

func TestDoctorServiceCatalog(t *testing.T) {
	rep, reg := seededReporter(t)
	ctx := context.Background()

	var johnson *models.Doctor
	for _, d := range reg.ListDoctors(ctx, clinic.DoctorFilter{}) {
		if d.LastName == "Johnson" {
			johnson = d
		}
	}
	if johnson == nil {
		t.Fatal("seed doctor Johnson not found")
	}

	services, err := rep.DoctorServiceCatalog(ctx, johnson.ID)
	if err != nil {
		t.Fatalf("DoctorServiceCatalog failed: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].Name != "Consultation" || services[1].Name != "ECG Test" {
		t.Errorf("expected name order, got %s then %s", services[0].Name, services[1].Name)
	}
}
