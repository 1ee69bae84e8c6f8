package users

import (
	"github.com/go-playground/validator/v10"
)

// Form validation is local and synchronous; nothing here touches the network.
var validate = validator.New(validator.WithRequiredStructEnabled())

// LoginCredentials is the payload for the login endpoint.
type LoginCredentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the credentials before they are sent to the API.
func (c LoginCredentials) Validate() error {
	return validate.Struct(c)
}

// RegisterData is the payload for both registration flows. ClinicID and
// DoctorID are only set for invitation-bound registrations.
type RegisterData struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Role      Role   `json:"role" validate:"required"`
	ClinicID  string `json:"clinicId,omitempty"`
	DoctorID  string `json:"doctorId,omitempty"`
}

// Validate checks the registration form, including password strength.
func (d RegisterData) Validate() error {
	if err := validate.Struct(d); err != nil {
		return err
	}
	if !d.Role.Valid() {
		return ErrUnknownRole
	}
	return ValidatePasswordStrength(d.Password)
}

// IsInviteBound reports whether the form targets the invitation registration
// flow, which additionally requires a valid invitation token.
func (d RegisterData) IsInviteBound() bool {
	return d.ClinicID != "" && d.DoctorID != ""
}
