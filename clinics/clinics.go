package clinics

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/users"
)

// Clinic is a practice the authenticated user administers or is attached to.
type Clinic struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// CreateClinicData is the clinic-creation form.
type CreateClinicData struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Service wraps the clinic endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List retrieves every clinic visible to the current user: for an owner or
// admin the clinics they administer, for staff the clinics they are attached to.
func (s *Service) List(ctx context.Context) ([]Clinic, error) {
	var clinics []Clinic
	if err := s.client.Get(ctx, "/clinics", &clinics, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return clinics, nil
}

// Create registers a new clinic owned by the current user.
func (s *Service) Create(ctx context.Context, data CreateClinicData) (*Clinic, error) {
	if data.Name == "" {
		return nil, errors.New("[Service.Create] clinic name is required")
	}
	clinic := &Clinic{}
	if err := s.client.Post(ctx, "/clinics", data, clinic, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return clinic, nil
}

// Staff lists the users attached to a clinic.
func (s *Service) Staff(ctx context.Context, clinicID string) ([]users.User, error) {
	var staff []users.User
	path := fmt.Sprintf("/clinics/%s/staff", clinicID)
	if err := s.client.Get(ctx, path, &staff, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Staff]")
	}
	return staff, nil
}

// RemoveUser detaches a user from a clinic.
func (s *Service) RemoveUser(ctx context.Context, clinicID, userID string) error {
	path := fmt.Sprintf("/clinics/%s/users/%s", clinicID, userID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.RemoveUser]")
	}
	return nil
}

// IsOwner reports whether the current user owns the clinic.
func (s *Service) IsOwner(ctx context.Context, clinicID string) (bool, error) {
	var owner bool
	path := fmt.Sprintf("/clinics/%s/is-owner", clinicID)
	if err := s.client.Get(ctx, path, &owner, nil); err != nil {
		return false, errors.Wrap(err, "[Service.IsOwner]")
	}
	return owner, nil
}
