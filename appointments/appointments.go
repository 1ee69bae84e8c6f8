package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dentatrack/console/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Valid reports whether s is a known appointment status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Appointment is a scheduled patient visit at a clinic.
type Appointment struct {
	ID              string    `json:"id"`
	ClinicID        string    `json:"clinicId"`
	DateTime        time.Time `json:"dateTime"`
	DurationMinutes int       `json:"durationMinutes"`
	PatientName     string    `json:"patientName"`
	Reason          string    `json:"reason"`
	Status          Status    `json:"status"`
}

// CreateAppointmentData is the scheduling form.
type CreateAppointmentData struct {
	ClinicID        string    `json:"clinicId" validate:"required"`
	DateTime        time.Time `json:"dateTime" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"gt=0"`
	PatientName     string    `json:"patientName" validate:"required"`
	Reason          string    `json:"reason" validate:"required"`
}

// Service wraps the appointment endpoints.
type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// ListByClinic retrieves every appointment of a clinic.
func (s *Service) ListByClinic(ctx context.Context, clinicID string) ([]Appointment, error) {
	var appts []Appointment
	path := fmt.Sprintf("/appointments/clinic/%s", clinicID)
	if err := s.client.Get(ctx, path, &appts, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.ListByClinic]")
	}
	return appts, nil
}

// Create schedules a new appointment.
func (s *Service) Create(ctx context.Context, data CreateAppointmentData) (*Appointment, error) {
	if err := validate.Struct(data); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] invalid appointment form")
	}
	appt := &Appointment{}
	if err := s.client.Post(ctx, "/appointments", data, appt, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return appt, nil
}

// UpdateStatus moves an appointment to a new lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID string, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, errors.Errorf("[Service.UpdateStatus] unknown status %q", status)
	}
	appt := &Appointment{}
	path := fmt.Sprintf("/appointments/%s/status", appointmentID)
	if err := s.client.Patch(ctx, path, map[string]Status{"status": status}, appt); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateStatus]")
	}
	return appt, nil
}
