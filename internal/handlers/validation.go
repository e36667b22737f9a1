package handlers

import (
	"errors"
	"regexp"
	"strings"

	"remindmail/internal/models"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = validator.New()

// ValidationError is a user-correctable problem with a submission
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// bindingError turns a gin binding failure into a ValidationError
func bindingError(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Message: "Invalid request body"}
	}

	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return &ValidationError{Field: fe.Field(), Message: "Missing required fields"}
		}
	}
	return &ValidationError{Field: fieldErrs[0].Field(), Message: "Invalid " + strings.ToLower(fieldErrs[0].Field())}
}

// validateReminderRequest trims the fields and checks the email format on the trimmed value
func validateReminderRequest(req *models.CreateReminderRequest) *ValidationError {
	req.Email = strings.TrimSpace(req.Email)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	if req.Email == "" || req.Date == "" || req.Time == "" {
		return &ValidationError{Message: "Missing required fields"}
	}
	if !emailPattern.MatchString(req.Email) || validate.Var(req.Email, "email") != nil {
		return &ValidationError{Field: "email", Message: "Invalid email format"}
	}
	return nil
}
