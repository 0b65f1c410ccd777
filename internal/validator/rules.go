package validator

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules adds app-specific validation rules.
func registerCustomRules(v *validator.Validate) error {
	return v.RegisterValidation("barcode", validateBarcode)
}

// validateBarcode accepts digit-only strings; surrounding whitespace is
// tolerated because scanners regularly inject it.
func validateBarcode(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return false
	}
	for _, r := range value {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
