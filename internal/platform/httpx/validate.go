package httpx

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stockflow-hq/stockflow/internal/shared"
)

// NewValidator returns a validator that reports errors under JSON field
// names rather than Go struct field names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate runs struct validation and converts failures into a
// field-keyed validation error, or nil when the value is valid.
func Validate(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	vErr := shared.NewValidationError()
	for _, fe := range fieldErrs {
		vErr.Add(fe.Field(), validationMessage(fe))
	}
	return vErr
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "gt":
		return "Must be greater than " + fe.Param() + "."
	case "gte":
		return "Must be at least " + fe.Param() + "."
	case "email":
		return "Must be a valid email address."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	default:
		return "Invalid value."
	}
}
