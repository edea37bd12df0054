package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// seatPositionRgx matches labels like "A1" or "AB12": a row of letters
	// followed by a column number.
	seatPositionRgx = regexp.MustCompile(`^[A-Z]{1,2}[1-9][0-9]{0,2}$`)

	paymentMethods = map[string]bool{
		"online":  true,
		"counter": true,
	}
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_position", validateSeatPosition)
	validator.RegisterValidation("payment_method", validatePaymentMethod)

	return validator
}

func validateSeatPosition(fl validator.FieldLevel) bool {
	return seatPositionRgx.MatchString(fl.Field().String())
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return paymentMethods[fl.Field().String()]
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must have at most %s", err.Param())
	case "alphanum":
		return "must contain only letters and numbers"
	case "seat_position":
		return "must be a seat label like A1"
	case "payment_method":
		return "must be one of: online, counter"
	default:
		return "is invalid"
	}
}
