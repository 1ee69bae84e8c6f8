package invitations

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
	apperrors "github.com/dentatrack/console/internal/errors"
	"github.com/dentatrack/console/users"
)

// Invitation permits a new user to join an existing clinic at a
// predetermined role.
type Invitation struct {
	ClinicID string     `json:"clinicId"`
	Role     users.Role `json:"role"`
	DoctorID string     `json:"doctorId,omitempty"`
}

// Request is the invitation-creation form.
type Request struct {
	ClinicID string     `json:"clinicId"`
	Role     users.Role `json:"role"`
	DoctorID string     `json:"doctorId,omitempty"`
}

// Validation is the result of checking an invitation token. A used or
// expired token makes the bound registration flow unavailable.
type Validation struct {
	Used          bool       `json:"used"`
	EmployeeEmail string     `json:"employeeEmail"`
	Role          users.Role `json:"role"`
	ClinicID      string     `json:"clinicId"`
	DoctorID      string     `json:"doctorId,omitempty"`
}

// Service wraps the invitation endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Create issues an invitation for the given clinic and role.
func (s *Service) Create(ctx context.Context, req Request) (*Invitation, error) {
	if req.ClinicID == "" {
		return nil, errors.New("[Service.Create] clinicId is required")
	}
	if !req.Role.Valid() {
		return nil, errors.Wrap(users.ErrUnknownRole, "[Service.Create]")
	}
	inv := &Invitation{}
	if err := s.client.Post(ctx, "/invitations", req, inv, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return inv, nil
}

// ListByClinic retrieves the invitations issued for a clinic.
func (s *Service) ListByClinic(ctx context.Context, clinicID string) ([]Invitation, error) {
	var invs []Invitation
	path := fmt.Sprintf("/invitations/clinic/%s", clinicID)
	if err := s.client.Get(ctx, path, &invs, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.ListByClinic]")
	}
	return invs, nil
}

// Validate checks an invitation token. The endpoint is public; it is called
// before the invitee has any session. A used token is rejected here rather
// than at registration time.
func (s *Service) Validate(ctx context.Context, token string) (*Validation, error) {
	if token == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidInvitation, "[Service.Validate] missing token")
	}
	v := &Validation{}
	if err := s.client.Get(ctx, "/invitations/validate", v, map[string]string{"token": token}); err != nil {
		return nil, errors.Wrap(err, "[Service.Validate]")
	}
	if v.Used {
		return v, errors.Wrap(apperrors.ErrInvitationUsed, "[Service.Validate]")
	}
	return v, nil
}
