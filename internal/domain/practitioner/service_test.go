package practitioner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repositories --

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
	links   []*DoctorSpecialty
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByLicense(_ context.Context, license string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.LicenseNumber == license {
			return d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if d, ok := m.doctors[id]; ok {
		d.Active = active
	}
	return nil
}

func (m *mockDoctorRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		if activeOnly && !d.Active {
			continue
		}
		result = append(result, d)
	}
	return result, len(result), nil
}

func (m *mockDoctorRepo) ListBySpecialty(_ context.Context, specialtyID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, link := range m.links {
		if link.SpecialtyID == specialtyID {
			if d, ok := m.doctors[link.DoctorID]; ok {
				result = append(result, d)
			}
		}
	}
	return result, len(result), nil
}

func (m *mockDoctorRepo) AddSpecialty(_ context.Context, link *DoctorSpecialty) error {
	m.links = append(m.links, link)
	return nil
}

func (m *mockDoctorRepo) RemoveSpecialty(_ context.Context, doctorID, specialtyID uuid.UUID) error {
	for i, link := range m.links {
		if link.DoctorID == doctorID && link.SpecialtyID == specialtyID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockDoctorRepo) Specialties(_ context.Context, doctorID uuid.UUID) ([]*Specialty, error) {
	return nil, nil
}

type mockSpecialtyRepo struct {
	specialties map[uuid.UUID]*Specialty
}

func newMockSpecialtyRepo() *mockSpecialtyRepo {
	return &mockSpecialtyRepo{specialties: make(map[uuid.UUID]*Specialty)}
}

func (m *mockSpecialtyRepo) Create(_ context.Context, s *Specialty) error {
	s.ID = uuid.New()
	m.specialties[s.ID] = s
	return nil
}

func (m *mockSpecialtyRepo) GetByID(_ context.Context, id uuid.UUID) (*Specialty, error) {
	s, ok := m.specialties[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSpecialtyRepo) GetByName(_ context.Context, name string) (*Specialty, error) {
	for _, s := range m.specialties {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockSpecialtyRepo) Update(_ context.Context, s *Specialty) error {
	m.specialties[s.ID] = s
	return nil
}

func (m *mockSpecialtyRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if s, ok := m.specialties[id]; ok {
		s.Active = active
	}
	return nil
}

func (m *mockSpecialtyRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Specialty, int, error) {
	var result []*Specialty
	for _, s := range m.specialties {
		result = append(result, s)
	}
	return result, len(result), nil
}

type mockScheduleDeactivator struct {
	deactivated []uuid.UUID
}

func (m *mockScheduleDeactivator) DeactivateByDoctor(_ context.Context, doctorID uuid.UUID) error {
	m.deactivated = append(m.deactivated, doctorID)
	return nil
}

// -- Tests --

func TestCreateDoctorRejectsDuplicateLicense(t *testing.T) {
	svc := NewService(newMockDoctorRepo(), newMockSpecialtyRepo(), nil)

	d := &Doctor{FirstName: "Laura", LastName: "Diaz", LicenseNumber: "MP-1234"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}

	dup := &Doctor{FirstName: "Otro", LastName: "Medico", LicenseNumber: "MP-1234"}
	if err := svc.CreateDoctor(context.Background(), dup); !errors.Is(err, ErrLicenseInUse) {
		t.Errorf("CreateDoctor duplicate = %v, want ErrLicenseInUse", err)
	}
}

func TestCreateDoctorLinksPrimarySpecialty(t *testing.T) {
	doctors := newMockDoctorRepo()
	specialties := newMockSpecialtyRepo()
	svc := NewService(doctors, specialties, nil)

	sp := &Specialty{Name: "Cardiology"}
	if err := svc.CreateSpecialty(context.Background(), sp); err != nil {
		t.Fatalf("CreateSpecialty: %v", err)
	}

	d := &Doctor{FirstName: "Laura", LastName: "Diaz", LicenseNumber: "MP-1234", PrimarySpecialtyID: &sp.ID}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if len(doctors.links) != 1 || !doctors.links[0].IsPrimary {
		t.Errorf("expected one primary specialty link, got %+v", doctors.links)
	}
}

func TestDeactivateDoctorCascadesToSchedules(t *testing.T) {
	doctors := newMockDoctorRepo()
	schedules := &mockScheduleDeactivator{}
	svc := NewService(doctors, newMockSpecialtyRepo(), schedules)

	d := &Doctor{FirstName: "Laura", LastName: "Diaz", LicenseNumber: "MP-1234"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if err := svc.DeactivateDoctor(context.Background(), d.ID); err != nil {
		t.Fatalf("DeactivateDoctor: %v", err)
	}

	if doctors.doctors[d.ID].Active {
		t.Error("doctor should be inactive")
	}
	if len(schedules.deactivated) != 1 || schedules.deactivated[0] != d.ID {
		t.Errorf("schedule deactivation not cascaded: %+v", schedules.deactivated)
	}
}

func TestCreateSpecialtyDefaultsDuration(t *testing.T) {
	svc := NewService(newMockDoctorRepo(), newMockSpecialtyRepo(), nil)

	sp := &Specialty{Name: "Dermatology"}
	if err := svc.CreateSpecialty(context.Background(), sp); err != nil {
		t.Fatalf("CreateSpecialty: %v", err)
	}
	if sp.DefaultDurationMin != defaultAppointmentMinutes {
		t.Errorf("default duration = %d, want %d", sp.DefaultDurationMin, defaultAppointmentMinutes)
	}

	dup := &Specialty{Name: "Dermatology"}
	if err := svc.CreateSpecialty(context.Background(), dup); !errors.Is(err, ErrSpecialtyInUse) {
		t.Errorf("CreateSpecialty duplicate = %v, want ErrSpecialtyInUse", err)
	}
}
