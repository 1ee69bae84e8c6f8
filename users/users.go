package users

import (
	"fmt"
	"time"
	"unicode"
)

// Role represents a user's role within the platform
type Role string

const (
	RoleAdmin     Role = "ADMIN"     // Platform administrator
	RoleOwner     Role = "OWNER"     // Clinic owner, can manage clinics and staff
	RoleDoctor    Role = "DOCTOR"    // Practising doctor attached to a clinic
	RoleAssistant Role = "ASSISTANT" // Clinic staff, joins via invitation only
)

// Valid reports whether r is one of the known platform roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleDoctor, RoleAssistant:
		return true
	}
	return false
}

// CanCreateClinic reports whether the role may enter the clinic-creation flow.
// Assistants join existing clinics via invitation and never create their own.
func (r Role) CanCreateClinic() bool {
	return r != RoleAssistant
}

type User struct {
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// ValidatePasswordStrength checks if password meets platform requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
