// Package reports implements the read-only projections consumed by
// reporting clients. Everything here is a pure read over the registry;
// nothing in this package mutates state.
package reports

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/internal/clinic"
	"github.com/savegress/clinicore/pkg/models"
)

// Reporter builds reporting projections over a registry
type Reporter struct {
	reg *clinic.Registry
}

// NewReporter creates a reporter over reg
func NewReporter(reg *clinic.Registry) *Reporter {
	return &Reporter{reg: reg}
}

// UpcomingAppointment is a scheduled appointment joined with names
type UpcomingAppointment struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PatientName   string `json:"patient_name"`
	DoctorName    string `json:"doctor_name"`
	ClinicName    string `json:"clinic_name,omitempty"`
	RoomNumber    string `json:"room_number,omitempty"`
}

// UpcomingAppointments returns all scheduled appointments with patient and
// doctor names, ordered by date then time
func (r *Reporter) UpcomingAppointments(ctx context.Context) []UpcomingAppointment {
	appts := r.reg.ListAppointments(ctx, clinic.AppointmentFilter{Status: models.AppointmentScheduled})

	results := make([]UpcomingAppointment, 0, len(appts))
	for _, a := range appts {
		row := UpcomingAppointment{
			AppointmentID: a.ID,
			Date:          a.Date,
			Time:          a.Time,
		}
		if p, err := r.reg.GetPatient(ctx, a.PatientID); err == nil {
			row.PatientName = p.FirstName + " " + p.LastName
		}
		if d, err := r.reg.GetDoctor(ctx, a.DoctorID); err == nil {
			row.DoctorName = d.FirstName + " " + d.LastName
		}
		if a.ClinicID != nil {
			if c, err := r.reg.GetClinic(ctx, *a.ClinicID); err == nil {
				row.ClinicName = c.Name
			}
		}
		if a.RoomID != nil {
			if rm, err := r.reg.GetRoom(ctx, *a.RoomID); err == nil {
				row.RoomNumber = rm.RoomNumber
			}
		}
		results = append(results, row)
	}
	return results
}

// DoctorWorkload summarises a doctor's appointment load
type DoctorWorkload struct {
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name"`
	Patients     int    `json:"patients"`
	Appointments int    `json:"appointments"`
}

// DoctorWorkloads returns per-doctor distinct patient and appointment
// counts, ordered by doctor name
func (r *Reporter) DoctorWorkloads(ctx context.Context) []DoctorWorkload {
	doctors := r.reg.ListDoctors(ctx, clinic.DoctorFilter{})

	results := make([]DoctorWorkload, 0, len(doctors))
	for _, d := range doctors {
		appts := r.reg.ListAppointments(ctx, clinic.AppointmentFilter{DoctorID: d.ID})
		patients := make(map[string]bool)
		for _, a := range appts {
			patients[a.PatientID] = true
		}
		results = append(results, DoctorWorkload{
			DoctorID:     d.ID,
			DoctorName:   d.FirstName + " " + d.LastName,
			Patients:     len(patients),
			Appointments: len(appts),
		})
	}
	return results
}

// PatientPrescription is a prescription joined with its appointment slot
type PatientPrescription struct {
	PrescriptionID  string `json:"prescription_id"`
	AppointmentID   string `json:"appointment_id"`
	AppointmentDate string `json:"appointment_date"`
	Medication      string `json:"medication"`
	Dosage          string `json:"dosage,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	PrescribedDate  string `json:"prescribed_date,omitempty"`
}

// PatientPrescriptions returns every prescription issued across a patient's
// appointments, ordered by appointment date
func (r *Reporter) PatientPrescriptions(ctx context.Context, patientID string) ([]PatientPrescription, error) {
	if _, err := r.reg.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}

	var results []PatientPrescription
	for _, a := range r.reg.ListAppointments(ctx, clinic.AppointmentFilter{PatientID: patientID}) {
		p, err := r.reg.GetPrescriptionByAppointment(ctx, a.ID)
		if err != nil {
			continue // appointment without prescription
		}
		results = append(results, PatientPrescription{
			PrescriptionID:  p.ID,
			AppointmentID:   a.ID,
			AppointmentDate: a.Date,
			Medication:      p.Medication,
			Dosage:          p.Dosage,
			Frequency:       p.Frequency,
			PrescribedDate:  p.PrescribedDate,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AppointmentDate < results[j].AppointmentDate })
	return results, nil
}

// DoctorRevenue is the settled payment total attributed to one doctor
type DoctorRevenue struct {
	DoctorID   string          `json:"doctor_id"`
	DoctorName string          `json:"doctor_name"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
}

// PaidTotalsByDoctor sums payments with status Paid per doctor, attributed
// through the paid appointment, ordered by doctor name
func (r *Reporter) PaidTotalsByDoctor(ctx context.Context) []DoctorRevenue {
	totals := make(map[string]decimal.Decimal)
	for _, p := range r.reg.ListPayments(ctx, clinic.PaymentFilter{Status: models.PaymentPaid}) {
		a, err := r.reg.GetAppointment(ctx, p.AppointmentID)
		if err != nil {
			continue
		}
		totals[a.DoctorID] = totals[a.DoctorID].Add(p.Amount)
	}

	doctors := r.reg.ListDoctors(ctx, clinic.DoctorFilter{})
	results := make([]DoctorRevenue, 0, len(doctors))
	for _, d := range doctors {
		results = append(results, DoctorRevenue{
			DoctorID:   d.ID,
			DoctorName: d.FirstName + " " + d.LastName,
			TotalPaid:  totals[d.ID],
		})
	}
	return results
}

// DepartmentActivity is the appointment count attributed to a department
type DepartmentActivity struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Appointments   int    `json:"appointments"`
}

// AppointmentsByDepartment counts appointments per department through the
// booked doctor. Departments without appointments appear with a zero count.
func (r *Reporter) AppointmentsByDepartment(ctx context.Context) []DepartmentActivity {
	counts := make(map[string]int)
	for _, a := range r.reg.ListAppointments(ctx, clinic.AppointmentFilter{}) {
		d, err := r.reg.GetDoctor(ctx, a.DoctorID)
		if err != nil {
			continue
		}
		counts[d.DepartmentID]++
	}

	departments := r.reg.ListDepartments(ctx)
	results := make([]DepartmentActivity, 0, len(departments))
	for _, d := range departments {
		results = append(results, DepartmentActivity{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			Appointments:   counts[d.ID],
		})
	}
	return results
}

// DoctorServiceCatalog returns the services a doctor offers, ordered by
// service name
func (r *Reporter) DoctorServiceCatalog(ctx context.Context, doctorID string) ([]models.Service, error) {
	if _, err := r.reg.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	var results []models.Service
	for _, link := range r.reg.ListDoctorServices(ctx, clinic.DoctorServiceFilter{DoctorID: doctorID}) {
		s, err := r.reg.GetService(ctx, link.ServiceID)
		if err != nil {
			continue
		}
		results = append(results, *s)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}
