package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	// National identity documents: 7-9 digits optionally followed by a
	// single check letter (covers DNI/NIE style documents).
	nationalIDPattern = regexp.MustCompile(`^[0-9]{7,9}[A-Za-z]?$`)

	// Loose E.164: optional +, 8-15 digits.
	phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// Register installs the custom validations on gin's binding engine.
// Call once at startup before the router is built.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("national_id", validNationalID); err != nil {
		return err
	}
	return v.RegisterValidation("phone", validPhone)
}

func validNationalID(fl validator.FieldLevel) bool {
	return nationalIDPattern.MatchString(fl.Field().String())
}

func validPhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}
