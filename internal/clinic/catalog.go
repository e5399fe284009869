package clinic

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/savegress/clinicore/internal/storage"
	"github.com/savegress/clinicore/pkg/models"
)

// CreateDepartment creates a department. The name must be unique.
func (r *Registry) CreateDepartment(ctx context.Context, d *models.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID != "" {
		if _, ok := r.departments[d.ID]; ok {
			return newConstraint(models.EntityDepartment, "id %q already exists", d.ID)
		}
	}
	if d.Name == "" {
		return newValidation(models.EntityDepartment, "name is required")
	}
	if _, ok := r.departmentByName(d.Name); ok {
		return newConstraint(models.EntityDepartment, "name %q already in use", d.Name)
	}

	rec := *d
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityDepartment, []storage.Change{
		storage.Put(models.EntityDepartment, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.departments[rec.ID] = rec
	*d = rec
	return nil
}

// DepartmentUpdate is a partial update of a department
type DepartmentUpdate struct {
	Name        *string
	Description *string
}

// UpdateDepartment applies a partial update to a department
func (r *Registry) UpdateDepartment(ctx context.Context, id string, upd DepartmentUpdate) (*models.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.departments[id]
	if !ok {
		return nil, newNotFound(models.EntityDepartment, id)
	}

	next := cur
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}

	if next.Name == "" {
		return nil, newValidation(models.EntityDepartment, "name is required")
	}
	if other, ok := r.departmentByName(next.Name); ok && other != id {
		return nil, newConstraint(models.EntityDepartment, "name %q already in use", next.Name)
	}

	if err := r.commit(ctx, models.EntityDepartment, []storage.Change{
		storage.Put(models.EntityDepartment, id, next),
	}); err != nil {
		return nil, err
	}
	r.departments[id] = next
	rec := next
	return &rec, nil
}

// DeleteDepartment deletes a department. The delete is blocked while any
// doctor belongs to it; rooms pointing at it are detached and survive.
func (r *Registry) DeleteDepartment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.departments[id]; !ok {
		return newNotFound(models.EntityDepartment, id)
	}
	for _, d := range r.doctors {
		if d.DepartmentID == id {
			return newConstraint(models.EntityDepartment, "doctors are still assigned to department %q", id)
		}
	}

	var changes []storage.Change
	var detached []models.Room
	for _, rm := range r.rooms {
		if rm.DepartmentID != nil && *rm.DepartmentID == id {
			rm.DepartmentID = nil
			detached = append(detached, rm)
			changes = append(changes, storage.Put(models.EntityRoom, rm.ID, rm))
		}
	}
	changes = append(changes, storage.Delete(models.EntityDepartment, id))

	if err := r.commit(ctx, models.EntityDepartment, changes); err != nil {
		return err
	}
	for _, rm := range detached {
		r.rooms[rm.ID] = rm
	}
	delete(r.departments, id)
	return nil
}

// GetDepartment retrieves a department by id
func (r *Registry) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.departments[id]
	if !ok {
		return nil, newNotFound(models.EntityDepartment, id)
	}
	rec := d
	return &rec, nil
}

// ListDepartments returns all departments ordered by name
func (r *Registry) ListDepartments(ctx context.Context) []*models.Department {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Department, 0, len(r.departments))
	for _, d := range r.departments {
		rec := d
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (r *Registry) departmentByName(name string) (string, bool) {
	for id, d := range r.departments {
		if d.Name == name {
			return id, true
		}
	}
	return "", false
}

// CreateClinic creates a clinic location
func (r *Registry) CreateClinic(ctx context.Context, c *models.Clinic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID != "" {
		if _, ok := r.clinics[c.ID]; ok {
			return newConstraint(models.EntityClinic, "id %q already exists", c.ID)
		}
	}
	if c.Name == "" {
		return newValidation(models.EntityClinic, "name is required")
	}

	rec := *c
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityClinic, []storage.Change{
		storage.Put(models.EntityClinic, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.clinics[rec.ID] = rec
	*c = rec
	return nil
}

// ClinicUpdate is a partial update of a clinic
type ClinicUpdate struct {
	Name     *string
	Location *string
}

// UpdateClinic applies a partial update to a clinic
func (r *Registry) UpdateClinic(ctx context.Context, id string, upd ClinicUpdate) (*models.Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.clinics[id]
	if !ok {
		return nil, newNotFound(models.EntityClinic, id)
	}

	next := cur
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Location != nil {
		next.Location = *upd.Location
	}
	if next.Name == "" {
		return nil, newValidation(models.EntityClinic, "name is required")
	}

	if err := r.commit(ctx, models.EntityClinic, []storage.Change{
		storage.Put(models.EntityClinic, id, next),
	}); err != nil {
		return nil, err
	}
	r.clinics[id] = next
	rec := next
	return &rec, nil
}

// DeleteClinic deletes a clinic. Appointments held at it survive with the
// clinic reference cleared.
func (r *Registry) DeleteClinic(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clinics[id]; !ok {
		return newNotFound(models.EntityClinic, id)
	}

	var changes []storage.Change
	var detached []models.Appointment
	for _, a := range r.appointments {
		if a.ClinicID != nil && *a.ClinicID == id {
			a = cloneAppointment(a)
			a.ClinicID = nil
			detached = append(detached, a)
			changes = append(changes, storage.Put(models.EntityAppointment, a.ID, a))
		}
	}
	changes = append(changes, storage.Delete(models.EntityClinic, id))

	if err := r.commit(ctx, models.EntityClinic, changes); err != nil {
		return err
	}
	for _, a := range detached {
		r.appointments[a.ID] = a
	}
	delete(r.clinics, id)
	return nil
}

// GetClinic retrieves a clinic by id
func (r *Registry) GetClinic(ctx context.Context, id string) (*models.Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clinics[id]
	if !ok {
		return nil, newNotFound(models.EntityClinic, id)
	}
	rec := c
	return &rec, nil
}

// ListClinics returns all clinics ordered by name
func (r *Registry) ListClinics(ctx context.Context) []*models.Clinic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Clinic, 0, len(r.clinics))
	for _, c := range r.clinics {
		rec := c
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// CreateService creates a billable service. The price must be non-negative.
func (r *Registry) CreateService(ctx context.Context, s *models.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID != "" {
		if _, ok := r.services[s.ID]; ok {
			return newConstraint(models.EntityService, "id %q already exists", s.ID)
		}
	}
	if s.Name == "" {
		return newValidation(models.EntityService, "name is required")
	}
	if s.Price.IsNegative() {
		return newValidation(models.EntityService, "price must not be negative")
	}

	rec := *s
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityService, []storage.Change{
		storage.Put(models.EntityService, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.services[rec.ID] = rec
	*s = rec
	return nil
}

// ServiceUpdate is a partial update of a service
type ServiceUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

// UpdateService applies a partial update to a service
func (r *Registry) UpdateService(ctx context.Context, id string, upd ServiceUpdate) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.services[id]
	if !ok {
		return nil, newNotFound(models.EntityService, id)
	}

	next := cur
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.Description != nil {
		next.Description = *upd.Description
	}
	if upd.Price != nil {
		next.Price = *upd.Price
	}

	if next.Name == "" {
		return nil, newValidation(models.EntityService, "name is required")
	}
	if next.Price.IsNegative() {
		return nil, newValidation(models.EntityService, "price must not be negative")
	}

	if err := r.commit(ctx, models.EntityService, []storage.Change{
		storage.Put(models.EntityService, id, next),
	}); err != nil {
		return nil, err
	}
	r.services[id] = next
	rec := next
	return &rec, nil
}

// DeleteService deletes a service and its doctor-service links
func (r *Registry) DeleteService(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.services[id]; !ok {
		return newNotFound(models.EntityService, id)
	}

	var changes []storage.Change
	var linkIDs []string
	for _, ds := range r.doctorServices {
		if ds.ServiceID == id {
			linkIDs = append(linkIDs, ds.ID)
			changes = append(changes, storage.Delete(models.EntityDoctorService, ds.ID))
		}
	}
	changes = append(changes, storage.Delete(models.EntityService, id))

	if err := r.commit(ctx, models.EntityService, changes); err != nil {
		return err
	}
	for _, linkID := range linkIDs {
		delete(r.doctorServices, linkID)
	}
	delete(r.services, id)
	return nil
}

// GetService retrieves a service by id
func (r *Registry) GetService(ctx context.Context, id string) (*models.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[id]
	if !ok {
		return nil, newNotFound(models.EntityService, id)
	}
	rec := s
	return &rec, nil
}

// ListServices returns all services ordered by name
func (r *Registry) ListServices(ctx context.Context) []*models.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Service, 0, len(r.services))
	for _, s := range r.services {
		rec := s
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// CreateRoom creates a room. The room number must be unique; capacity
// defaults to 1.
func (r *Registry) CreateRoom(ctx context.Context, rm *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm.ID != "" {
		if _, ok := r.rooms[rm.ID]; ok {
			return newConstraint(models.EntityRoom, "id %q already exists", rm.ID)
		}
	}
	if rm.RoomNumber == "" {
		return newValidation(models.EntityRoom, "room_number is required")
	}
	if rm.Capacity < 0 {
		return newValidation(models.EntityRoom, "capacity must not be negative")
	}
	if rm.DepartmentID != nil {
		if _, ok := r.departments[*rm.DepartmentID]; !ok {
			return newValidation(models.EntityRoom, "department %q does not exist", *rm.DepartmentID)
		}
	}
	if _, ok := r.roomByNumber(rm.RoomNumber); ok {
		return newConstraint(models.EntityRoom, "room_number %q already in use", rm.RoomNumber)
	}

	rec := cloneRoom(*rm)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Capacity == 0 {
		rec.Capacity = 1
	}

	if err := r.commit(ctx, models.EntityRoom, []storage.Change{
		storage.Put(models.EntityRoom, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.rooms[rec.ID] = rec
	*rm = cloneRoom(rec)
	return nil
}

// RoomUpdate is a partial update of a room
type RoomUpdate struct {
	RoomNumber      *string
	DepartmentID    *string
	ClearDepartment bool
	Capacity        *int
	Available       *bool
}

// UpdateRoom applies a partial update to a room
func (r *Registry) UpdateRoom(ctx context.Context, id string, upd RoomUpdate) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rooms[id]
	if !ok {
		return nil, newNotFound(models.EntityRoom, id)
	}

	next := cloneRoom(cur)
	if upd.RoomNumber != nil {
		next.RoomNumber = *upd.RoomNumber
	}
	if upd.ClearDepartment {
		next.DepartmentID = nil
	} else if upd.DepartmentID != nil {
		next.DepartmentID = cloneStr(upd.DepartmentID)
	}
	if upd.Capacity != nil {
		next.Capacity = *upd.Capacity
	}
	if upd.Available != nil {
		next.Available = *upd.Available
	}

	if next.RoomNumber == "" {
		return nil, newValidation(models.EntityRoom, "room_number is required")
	}
	if next.Capacity <= 0 {
		return nil, newValidation(models.EntityRoom, "capacity must be positive")
	}
	if next.DepartmentID != nil {
		if _, ok := r.departments[*next.DepartmentID]; !ok {
			return nil, newValidation(models.EntityRoom, "department %q does not exist", *next.DepartmentID)
		}
	}
	if other, ok := r.roomByNumber(next.RoomNumber); ok && other != id {
		return nil, newConstraint(models.EntityRoom, "room_number %q already in use", next.RoomNumber)
	}

	if err := r.commit(ctx, models.EntityRoom, []storage.Change{
		storage.Put(models.EntityRoom, id, next),
	}); err != nil {
		return nil, err
	}
	r.rooms[id] = next
	rec := cloneRoom(next)
	return &rec, nil
}

// DeleteRoom deletes a room. Appointments booked into it survive with the
// room reference cleared.
func (r *Registry) DeleteRoom(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[id]; !ok {
		return newNotFound(models.EntityRoom, id)
	}

	var changes []storage.Change
	var detached []models.Appointment
	for _, a := range r.appointments {
		if a.RoomID != nil && *a.RoomID == id {
			a = cloneAppointment(a)
			a.RoomID = nil
			detached = append(detached, a)
			changes = append(changes, storage.Put(models.EntityAppointment, a.ID, a))
		}
	}
	changes = append(changes, storage.Delete(models.EntityRoom, id))

	if err := r.commit(ctx, models.EntityRoom, changes); err != nil {
		return err
	}
	for _, a := range detached {
		r.appointments[a.ID] = a
	}
	delete(r.rooms, id)
	return nil
}

// GetRoom retrieves a room by id
func (r *Registry) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[id]
	if !ok {
		return nil, newNotFound(models.EntityRoom, id)
	}
	rec := cloneRoom(rm)
	return &rec, nil
}

// ListRooms returns all rooms ordered by room number
func (r *Registry) ListRooms(ctx context.Context) []*models.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*models.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rec := cloneRoom(rm)
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].RoomNumber < results[j].RoomNumber })
	return results
}

func (r *Registry) roomByNumber(number string) (string, bool) {
	for id, rm := range r.rooms {
		if rm.RoomNumber == number {
			return id, true
		}
	}
	return "", false
}

// CreateDoctorService links a doctor to a service. The pair is unique.
func (r *Registry) CreateDoctorService(ctx context.Context, ds *models.DoctorService) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ds.ID != "" {
		if _, ok := r.doctorServices[ds.ID]; ok {
			return newConstraint(models.EntityDoctorService, "id %q already exists", ds.ID)
		}
	}
	if ds.DoctorID == "" || ds.ServiceID == "" {
		return newValidation(models.EntityDoctorService, "doctor_id and service_id are required")
	}
	if _, ok := r.doctors[ds.DoctorID]; !ok {
		return newValidation(models.EntityDoctorService, "doctor %q does not exist", ds.DoctorID)
	}
	if _, ok := r.services[ds.ServiceID]; !ok {
		return newValidation(models.EntityDoctorService, "service %q does not exist", ds.ServiceID)
	}
	for _, existing := range r.doctorServices {
		if existing.DoctorID == ds.DoctorID && existing.ServiceID == ds.ServiceID {
			return newConstraint(models.EntityDoctorService, "doctor %q already offers service %q", ds.DoctorID, ds.ServiceID)
		}
	}

	rec := *ds
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if err := r.commit(ctx, models.EntityDoctorService, []storage.Change{
		storage.Put(models.EntityDoctorService, rec.ID, rec),
	}); err != nil {
		return err
	}
	r.doctorServices[rec.ID] = rec
	*ds = rec
	return nil
}

// DeleteDoctorService removes a doctor-service link
func (r *Registry) DeleteDoctorService(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doctorServices[id]; !ok {
		return newNotFound(models.EntityDoctorService, id)
	}

	if err := r.commit(ctx, models.EntityDoctorService, []storage.Change{
		storage.Delete(models.EntityDoctorService, id),
	}); err != nil {
		return err
	}
	delete(r.doctorServices, id)
	return nil
}

// DoctorServiceFilter narrows a doctor-service listing
type DoctorServiceFilter struct {
	DoctorID  string
	ServiceID string
}

// ListDoctorServices returns doctor-service links matching the filter
func (r *Registry) ListDoctorServices(ctx context.Context, f DoctorServiceFilter) []*models.DoctorService {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.DoctorService
	for _, ds := range r.doctorServices {
		if f.DoctorID != "" && ds.DoctorID != f.DoctorID {
			continue
		}
		if f.ServiceID != "" && ds.ServiceID != f.ServiceID {
			continue
		}
		rec := ds
		results = append(results, &rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}
