package clinic

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/pkg/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(context.Background(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return reg
}

func mustCreateDepartment(t *testing.T, reg *Registry, name string) *models.Department {
	t.Helper()
	d := &models.Department{Name: name}
	if err := reg.CreateDepartment(context.Background(), d); err != nil {
		t.Fatalf("CreateDepartment(%s) failed: %v", name, err)
	}
	return d
}

func mustCreateDoctor(t *testing.T, reg *Registry, deptID, first, last string) *models.Doctor {
	t.Helper()
	d := &models.Doctor{
		FirstName:    first,
		LastName:     last,
		DepartmentID: deptID,
		Phone:        "phone-" + first + last,
		Email:        first + "." + last + "@clinic.example",
	}
	if err := reg.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor(%s %s) failed: %v", first, last, err)
	}
	return d
}

func mustCreatePatient(t *testing.T, reg *Registry, first, last string) *models.Patient {
	t.Helper()
	p := &models.Patient{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: "1990-01-01",
		Gender:      models.GenderOther,
		Phone:       "phone-" + first + last,
		Email:       first + "." + last + "@mail.example",
	}
	if err := reg.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("CreatePatient(%s %s) failed: %v", first, last, err)
	}
	return p
}

func mustCreateService(t *testing.T, reg *Registry, name, price string) *models.Service {
	t.Helper()
	s := &models.Service{Name: name, Price: decimal.RequireFromString(price)}
	if err := reg.CreateService(context.Background(), s); err != nil {
		t.Fatalf("CreateService(%s) failed: %v", name, err)
	}
	return s
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func mustCreateAppointment(t *testing.T, reg *Registry, patientID, doctorID, date, at string) *models.Appointment {
	t.Helper()
	a := &models.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      at,
	}
	if err := reg.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	return a
}
