package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/pkg/models"
)

// EmbeddedStore is a SQLite-based embedded store for the clinic model.
// The schema carries the same foreign-key actions and unique indexes as the
// original relational definition, so the database file stays usable by plain
// SQL consumers; the registry still executes the cascade rules explicitly and
// hands the store the full change set.
type EmbeddedStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewEmbeddedStore creates a new embedded store under dataPath
func NewEmbeddedStore(dataPath string) (*EmbeddedStore, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "clinic.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &EmbeddedStore{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *EmbeddedStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS clinics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT
	);

	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		gender TEXT NOT NULL,
		phone TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		address TEXT,
		registration_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS doctors (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		specialization TEXT,
		department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE RESTRICT,
		phone TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		hire_date TEXT
	);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS doctor_services (
		id TEXT PRIMARY KEY,
		doctor_id TEXT NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
		service_id TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
		UNIQUE(doctor_id, service_id)
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		room_number TEXT NOT NULL UNIQUE,
		department_id TEXT REFERENCES departments(id) ON DELETE SET NULL,
		capacity INTEGER NOT NULL DEFAULT 1,
		availability INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS appointments (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		doctor_id TEXT NOT NULL REFERENCES doctors(id) ON DELETE RESTRICT,
		clinic_id TEXT REFERENCES clinics(id) ON DELETE SET NULL,
		room_id TEXT REFERENCES rooms(id) ON DELETE SET NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(doctor_id, date, time)
	);

	CREATE TABLE IF NOT EXISTS prescriptions (
		id TEXT PRIMARY KEY,
		appointment_id TEXT NOT NULL UNIQUE REFERENCES appointments(id) ON DELETE CASCADE,
		medication TEXT NOT NULL,
		dosage TEXT,
		frequency TEXT,
		instructions TEXT,
		prescribed_date TEXT
	);

	CREATE TABLE IF NOT EXISTS medical_records (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		appointment_id TEXT REFERENCES appointments(id) ON DELETE SET NULL,
		diagnosis TEXT NOT NULL,
		notes TEXT,
		record_date TEXT
	);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		appointment_id TEXT NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		payment_date TEXT,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Apply applies a change set in a single transaction
func (s *EmbeddedStore) Apply(ctx context.Context, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range changes {
		switch c.Op {
		case OpPut:
			err = s.put(ctx, tx, c)
		case OpDelete:
			err = s.delete(ctx, tx, c)
		default:
			err = fmt.Errorf("unknown op %q", c.Op)
		}
		if err != nil {
			return fmt.Errorf("%s %s/%s: %w", c.Op, c.Entity, c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *EmbeddedStore) put(ctx context.Context, tx *sql.Tx, c Change) error {
	switch rec := c.Record.(type) {
	case models.Department:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO departments (id, name, description) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description
		`, rec.ID, rec.Name, rec.Description)
		return err
	case models.Clinic:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clinics (id, name, location) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, location = excluded.location
		`, rec.ID, rec.Name, rec.Location)
		return err
	case models.Patient:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO patients (id, first_name, last_name, date_of_birth, gender, phone, email, address, registration_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_name = excluded.first_name, last_name = excluded.last_name,
				date_of_birth = excluded.date_of_birth, gender = excluded.gender,
				phone = excluded.phone, email = excluded.email,
				address = excluded.address, registration_date = excluded.registration_date
		`, rec.ID, rec.FirstName, rec.LastName, rec.DateOfBirth, string(rec.Gender), rec.Phone, rec.Email, rec.Address, rec.RegistrationDate)
		return err
	case models.Doctor:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialization, department_id, phone, email, hire_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_name = excluded.first_name, last_name = excluded.last_name,
				specialization = excluded.specialization, department_id = excluded.department_id,
				phone = excluded.phone, email = excluded.email, hire_date = excluded.hire_date
		`, rec.ID, rec.FirstName, rec.LastName, rec.Specialization, rec.DepartmentID, rec.Phone, rec.Email, rec.HireDate)
		return err
	case models.Service:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO services (id, name, description, price) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, description = excluded.description, price = excluded.price
		`, rec.ID, rec.Name, rec.Description, rec.Price.StringFixed(2))
		return err
	case models.DoctorService:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO doctor_services (id, doctor_id, service_id) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET doctor_id = excluded.doctor_id, service_id = excluded.service_id
		`, rec.ID, rec.DoctorID, rec.ServiceID)
		return err
	case models.Room:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (id, room_number, department_id, capacity, availability) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				room_number = excluded.room_number, department_id = excluded.department_id,
				capacity = excluded.capacity, availability = excluded.availability
		`, rec.ID, rec.RoomNumber, nullable(rec.DepartmentID), rec.Capacity, rec.Available)
		return err
	case models.Appointment:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (id, patient_id, doctor_id, clinic_id, room_id, date, time, status, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				patient_id = excluded.patient_id, doctor_id = excluded.doctor_id,
				clinic_id = excluded.clinic_id, room_id = excluded.room_id,
				date = excluded.date, time = excluded.time, status = excluded.status,
				notes = excluded.notes, created_at = excluded.created_at
		`, rec.ID, rec.PatientID, rec.DoctorID, nullable(rec.ClinicID), nullable(rec.RoomID),
			rec.Date, rec.Time, string(rec.Status), rec.Notes, rec.CreatedAt.Unix())
		return err
	case models.Prescription:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prescriptions (id, appointment_id, medication, dosage, frequency, instructions, prescribed_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				appointment_id = excluded.appointment_id, medication = excluded.medication,
				dosage = excluded.dosage, frequency = excluded.frequency,
				instructions = excluded.instructions, prescribed_date = excluded.prescribed_date
		`, rec.ID, rec.AppointmentID, rec.Medication, rec.Dosage, rec.Frequency, rec.Instructions, rec.PrescribedDate)
		return err
	case models.MedicalRecord:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO medical_records (id, patient_id, appointment_id, diagnosis, notes, record_date)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				patient_id = excluded.patient_id, appointment_id = excluded.appointment_id,
				diagnosis = excluded.diagnosis, notes = excluded.notes, record_date = excluded.record_date
		`, rec.ID, rec.PatientID, nullable(rec.AppointmentID), rec.Diagnosis, rec.Notes, rec.RecordDate)
		return err
	case models.Payment:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payments (id, appointment_id, amount, payment_date, payment_method, status)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				appointment_id = excluded.appointment_id, amount = excluded.amount,
				payment_date = excluded.payment_date, payment_method = excluded.payment_method,
				status = excluded.status
		`, rec.ID, rec.AppointmentID, rec.Amount.StringFixed(2), rec.PaymentDate, string(rec.Method), string(rec.Status))
		return err
	default:
		return fmt.Errorf("unknown record type %T", c.Record)
	}
}

var tableByEntity = map[models.EntityType]string{
	models.EntityDepartment:    "departments",
	models.EntityClinic:        "clinics",
	models.EntityPatient:       "patients",
	models.EntityDoctor:        "doctors",
	models.EntityService:       "services",
	models.EntityDoctorService: "doctor_services",
	models.EntityRoom:          "rooms",
	models.EntityAppointment:   "appointments",
	models.EntityPrescription:  "prescriptions",
	models.EntityMedicalRecord: "medical_records",
	models.EntityPayment:       "payments",
}

func (s *EmbeddedStore) delete(ctx context.Context, tx *sql.Tx, c Change) error {
	table, ok := tableByEntity[c.Entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", c.Entity)
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", c.ID)
	return err
}

// Load reads the full persisted state
func (s *EmbeddedStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{}

	if err := s.loadDepartments(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadClinics(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadPatients(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadDoctors(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadServices(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadDoctorServices(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadRooms(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadAppointments(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadPrescriptions(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadMedicalRecords(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadPayments(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *EmbeddedStore) loadDepartments(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(description, '') FROM departments`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description); err != nil {
			return err
		}
		snap.Departments = append(snap.Departments, d)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadClinics(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(location, '') FROM clinics`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Location); err != nil {
			return err
		}
		snap.Clinics = append(snap.Clinics, c)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadPatients(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, date_of_birth, gender, phone, email, COALESCE(address, ''), registration_date
		FROM patients`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Patient
		var gender string
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &gender, &p.Phone, &p.Email, &p.Address, &p.RegistrationDate); err != nil {
			return err
		}
		p.Gender = models.Gender(gender)
		snap.Patients = append(snap.Patients, p)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadDoctors(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, COALESCE(specialization, ''), department_id, phone, email, COALESCE(hire_date, '')
		FROM doctors`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.Doctor
		if err := rows.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization, &d.DepartmentID, &d.Phone, &d.Email, &d.HireDate); err != nil {
			return err
		}
		snap.Doctors = append(snap.Doctors, d)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadServices(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, COALESCE(description, ''), price FROM services`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sv models.Service
		var price string
		if err := rows.Scan(&sv.ID, &sv.Name, &sv.Description, &price); err != nil {
			return err
		}
		sv.Price, err = decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("service %s: bad price %q: %w", sv.ID, price, err)
		}
		snap.Services = append(snap.Services, sv)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadDoctorServices(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doctor_id, service_id FROM doctor_services`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ds models.DoctorService
		if err := rows.Scan(&ds.ID, &ds.DoctorID, &ds.ServiceID); err != nil {
			return err
		}
		snap.DoctorServices = append(snap.DoctorServices, ds)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadRooms(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, room_number, department_id, capacity, availability FROM rooms`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.Room
		var dept sql.NullString
		if err := rows.Scan(&r.ID, &r.RoomNumber, &dept, &r.Capacity, &r.Available); err != nil {
			return err
		}
		r.DepartmentID = fromNull(dept)
		snap.Rooms = append(snap.Rooms, r)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadAppointments(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, doctor_id, clinic_id, room_id, date, time, status, COALESCE(notes, ''), created_at
		FROM appointments`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Appointment
		var clinic, room sql.NullString
		var status string
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &clinic, &room, &a.Date, &a.Time, &status, &a.Notes, &createdAt); err != nil {
			return err
		}
		a.ClinicID = fromNull(clinic)
		a.RoomID = fromNull(room)
		a.Status = models.AppointmentStatus(status)
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		snap.Appointments = append(snap.Appointments, a)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadPrescriptions(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, medication, COALESCE(dosage, ''), COALESCE(frequency, ''),
			COALESCE(instructions, ''), COALESCE(prescribed_date, '')
		FROM prescriptions`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Prescription
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Medication, &p.Dosage, &p.Frequency, &p.Instructions, &p.PrescribedDate); err != nil {
			return err
		}
		snap.Prescriptions = append(snap.Prescriptions, p)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadMedicalRecords(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, appointment_id, diagnosis, COALESCE(notes, ''), COALESCE(record_date, '')
		FROM medical_records`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m models.MedicalRecord
		var appt sql.NullString
		if err := rows.Scan(&m.ID, &m.PatientID, &appt, &m.Diagnosis, &m.Notes, &m.RecordDate); err != nil {
			return err
		}
		m.AppointmentID = fromNull(appt)
		snap.MedicalRecords = append(snap.MedicalRecords, m)
	}
	return rows.Err()
}

func (s *EmbeddedStore) loadPayments(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, amount, COALESCE(payment_date, ''), payment_method, status
		FROM payments`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Payment
		var amount, method, status string
		if err := rows.Scan(&p.ID, &p.AppointmentID, &amount, &p.PaymentDate, &method, &status); err != nil {
			return err
		}
		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("payment %s: bad amount %q: %w", p.ID, amount, err)
		}
		p.Method = models.PaymentMethod(method)
		p.Status = models.PaymentStatus(status)
		snap.Payments = append(snap.Payments, p)
	}
	return rows.Err()
}

// Close closes the store
func (s *EmbeddedStore) Close() error {
	return s.db.Close()
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
