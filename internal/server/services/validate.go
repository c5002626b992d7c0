package services

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/talenthub/internal/server/models"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type Verify2FAInput struct {
	Email string
	Code  string
}

func (in *RegisterInput) normalize() *Error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if verr := validateAccount(in.Name, in.Email, in.Password); verr != nil {
		return verr
	}
	if in.Role == "" {
		in.Role = models.RoleCandidate
	}
	if in.Role != models.RoleCandidate && in.Role != models.RoleEmployer {
		return validationError("role", "Role must be EMPLOYER or CANDIDATE")
	}
	return nil
}

func validateAccount(name, email, password string) *Error {
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return validationError("name", "Name must be between 2 and 50 characters")
	}
	if !validEmail(email) {
		return validationError("email", "Please provide a valid email")
	}
	if msg := passwordProblem(password); msg != "" {
		return validationError("password", msg)
	}
	return nil
}

func (in *LoginInput) normalize() *Error {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return validationError("email", "Email is required")
	}
	if in.Password == "" {
		return validationError("password", "Password is required")
	}
	return nil
}

func (in *Verify2FAInput) normalize() *Error {
	in.Email = strings.TrimSpace(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if in.Email == "" {
		return validationError("email", "Email is required")
	}
	if in.Code == "" {
		return validationError("code", "Verification code is required")
	}
	return nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// passwordProblem returns a client message describing why password is too
// weak, or "" if it is acceptable.
func passwordProblem(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters long"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	}
	return ""
}
