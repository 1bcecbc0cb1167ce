package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

type enumValue interface {
	IsValid() bool
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// report json names instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// enum: the value (or pointer target) must report IsValid()
		_ = validate.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return true
				}
				field = field.Elem()
			}
			if !field.CanInterface() {
				return false
			}
			if e, ok := field.Interface().(enumValue); ok {
				return e.IsValid()
			}
			return false
		})
	})
	return validate
}

// ValidateStruct runs struct tag validation and converts failures into a *ValidationError.
func ValidateStruct(input any) error {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return NewValidationError("invalid input: %v", err)
	}
	return &ValidationError{
		Message: "invalid input",
		Fields:  ProcessValidationErrors(err),
	}
}

func ProcessValidationErrors(err error) map[string]string {

	var validationErrors validator.ValidationErrors
	errorResponse := make(map[string]string)
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}
