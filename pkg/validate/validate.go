package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const tagISBNDigits = "isbn_digits"

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation(tagISBNDigits, isbnDigits) //nolint:errcheck
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// isbnDigits accepts 10 or 13 digits, optionally separated by hyphens or spaces.
func isbnDigits(fl validator.FieldLevel) bool {
	return ISBNDigits(fl.Field().String())
}

func ISBNDigits(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == ' ':
		default:
			return false
		}
	}
	return digits == 10 || digits == 13
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

// Messages maps every failed field of a validator.ValidationErrors to a
// human readable message keyed by the field's json name.
func Messages(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe.Field(), fe)
	}
	return out
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return name + " must be at most " + fe.Param() + " characters"
		}
		return name + " must be at most " + fe.Param()
	case "min":
		return name + " must be at least " + fe.Param()
	case tagISBNDigits:
		return name + " must contain 10 or 13 digits (hyphens allowed)"
	}
	return name + " is invalid"
}
