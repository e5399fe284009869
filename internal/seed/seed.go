// Package seed loads the sample reference data the clinic model ships with:
// three departments, a clinic, three services, two doctors with their service
// links, two patients, two booked appointments and the records and payments
// hanging off them. Everything goes through the ordinary registry create
// calls, so the seed exercises the same validation as any other caller.
package seed

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/internal/clinic"
	"github.com/savegress/clinicore/pkg/models"
)

func strPtr(s string) *string { return &s }

// Load populates reg with the sample data set. It expects an empty registry;
// on a non-empty one the uniqueness rules will reject the duplicates.
func Load(ctx context.Context, reg *clinic.Registry) error {
	cardiology := &models.Department{Name: "Cardiology", Description: "Heart and vascular care"}
	pediatrics := &models.Department{Name: "Pediatrics", Description: "Care for infants, children and adolescents"}
	orthopedics := &models.Department{Name: "Orthopedics", Description: "Musculoskeletal care"}
	for _, d := range []*models.Department{cardiology, pediatrics, orthopedics} {
		if err := reg.CreateDepartment(ctx, d); err != nil {
			return err
		}
	}

	center := &models.Clinic{Name: "City Health Center", Location: "Downtown"}
	if err := reg.CreateClinic(ctx, center); err != nil {
		return err
	}

	consultation := &models.Service{Name: "Consultation", Description: "General consultation", Price: decimal.RequireFromString("50.00")}
	ecg := &models.Service{Name: "ECG Test", Description: "Electrocardiogram", Price: decimal.RequireFromString("100.00")}
	bloodTest := &models.Service{Name: "Blood Test", Description: "Full blood panel", Price: decimal.RequireFromString("75.00")}
	for _, s := range []*models.Service{consultation, ecg, bloodTest} {
		if err := reg.CreateService(ctx, s); err != nil {
			return err
		}
	}

	johnson := &models.Doctor{
		FirstName:      "Alice",
		LastName:       "Johnson",
		Specialization: "Cardiologist",
		DepartmentID:   cardiology.ID,
		Phone:          "555-0101",
		Email:          "alice.johnson@clinic.example",
		HireDate:       "2018-03-12",
	}
	lee := &models.Doctor{
		FirstName:      "Bob",
		LastName:       "Lee",
		Specialization: "Pediatrician",
		DepartmentID:   pediatrics.ID,
		Phone:          "555-0102",
		Email:          "bob.lee@clinic.example",
		HireDate:       "2020-08-01",
	}
	for _, d := range []*models.Doctor{johnson, lee} {
		if err := reg.CreateDoctor(ctx, d); err != nil {
			return err
		}
	}

	links := []*models.DoctorService{
		{DoctorID: johnson.ID, ServiceID: consultation.ID},
		{DoctorID: johnson.ID, ServiceID: ecg.ID},
		{DoctorID: lee.ID, ServiceID: consultation.ID},
		{DoctorID: lee.ID, ServiceID: bloodTest.ID},
	}
	for _, l := range links {
		if err := reg.CreateDoctorService(ctx, l); err != nil {
			return err
		}
	}

	doe := &models.Patient{
		FirstName:   "John",
		LastName:    "Doe",
		DateOfBirth: "1980-05-14",
		Gender:      models.GenderMale,
		Phone:       "555-0201",
		Email:       "john.doe@mail.example",
		Address:     "12 Elm Street",
	}
	smith := &models.Patient{
		FirstName:   "Jane",
		LastName:    "Smith",
		DateOfBirth: "2015-09-30",
		Gender:      models.GenderFemale,
		Phone:       "555-0202",
		Email:       "jane.smith@mail.example",
		Address:     "48 Oak Avenue",
	}
	for _, p := range []*models.Patient{doe, smith} {
		if err := reg.CreatePatient(ctx, p); err != nil {
			return err
		}
	}

	room101 := &models.Room{RoomNumber: "101", DepartmentID: strPtr(cardiology.ID), Capacity: 2, Available: true}
	room202 := &models.Room{RoomNumber: "202", DepartmentID: strPtr(pediatrics.ID), Available: true}
	for _, rm := range []*models.Room{room101, room202} {
		if err := reg.CreateRoom(ctx, rm); err != nil {
			return err
		}
	}

	cardioVisit := &models.Appointment{
		PatientID: doe.ID,
		DoctorID:  johnson.ID,
		ClinicID:  strPtr(center.ID),
		RoomID:    strPtr(room101.ID),
		Date:      "2025-07-01",
		Time:      "09:00",
		Notes:     "Follow-up on elevated blood pressure",
	}
	pedsVisit := &models.Appointment{
		PatientID: smith.ID,
		DoctorID:  lee.ID,
		ClinicID:  strPtr(center.ID),
		RoomID:    strPtr(room202.ID),
		Date:      "2025-07-01",
		Time:      "10:00",
		Notes:     "Annual check-up",
	}
	for _, a := range []*models.Appointment{cardioVisit, pedsVisit} {
		if err := reg.CreateAppointment(ctx, a); err != nil {
			return err
		}
	}

	prescriptions := []*models.Prescription{
		{
			AppointmentID:  cardioVisit.ID,
			Medication:     "Lisinopril",
			Dosage:         "10mg",
			Frequency:      "once daily",
			Instructions:   "Take in the morning with water",
			PrescribedDate: "2025-07-01",
		},
		{
			AppointmentID:  pedsVisit.ID,
			Medication:     "Amoxicillin",
			Dosage:         "250mg",
			Frequency:      "three times daily",
			Instructions:   "Complete the full course",
			PrescribedDate: "2025-07-01",
		},
	}
	for _, p := range prescriptions {
		if err := reg.CreatePrescription(ctx, p); err != nil {
			return err
		}
	}

	records := []*models.MedicalRecord{
		{
			PatientID:     doe.ID,
			AppointmentID: strPtr(cardioVisit.ID),
			Diagnosis:     "Hypertension",
			Notes:         "Blood pressure trending down since last visit",
			RecordDate:    "2025-07-01",
		},
		{
			PatientID:     smith.ID,
			AppointmentID: strPtr(pedsVisit.ID),
			Diagnosis:     "Mild ear infection",
			Notes:         "Re-check in two weeks if symptoms persist",
			RecordDate:    "2025-07-01",
		},
	}
	for _, m := range records {
		if err := reg.CreateMedicalRecord(ctx, m); err != nil {
			return err
		}
	}

	payments := []*models.Payment{
		{
			AppointmentID: cardioVisit.ID,
			Amount:        decimal.RequireFromString("50.00"),
			PaymentDate:   "2025-07-01",
			Method:        models.PaymentMethodCash,
			Status:        models.PaymentPaid,
		},
		{
			AppointmentID: pedsVisit.ID,
			Amount:        decimal.RequireFromString("75.00"),
			PaymentDate:   "2025-07-01",
			Method:        models.PaymentMethodCard,
			Status:        models.PaymentPaid,
		},
		// The ECG for the cardiology visit is billed but not yet settled.
		{
			AppointmentID: cardioVisit.ID,
			Amount:        decimal.RequireFromString("100.00"),
			PaymentDate:   "2025-07-02",
			Method:        models.PaymentMethodOnline,
			Status:        models.PaymentPending,
		},
	}
	for _, p := range payments {
		if err := reg.CreatePayment(ctx, p); err != nil {
			return err
		}
	}

	return nil
}
