// Package validation wraps go-playground/validator with the field rules the
// docstore configuration needs.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"docstore-handles/internal/common/errors"
)

// Validator provides struct validation using go-playground/validator
type Validator struct {
	validator *validator.Validate
}

// FieldError represents a single validation error with context
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// New creates a validator instance. Fields are reported by their env tag,
// falling back to the json tag and then the Go field name.
func New() *Validator {
	v := validator.New()

	registerValidators(v)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validator: v}
}

// ValidateStruct validates a struct using struct tags
func (cv *Validator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *Validator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// FieldErrors validates s and returns one entry per failed rule.
func (cv *Validator) FieldErrors(s interface{}) []FieldError {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}
	return cv.extractFieldErrors(err)
}

// formatValidationErrors converts go-playground/validator errors to a config error
func (cv *Validator) formatValidationErrors(err error) error {
	fieldErrors := cv.extractFieldErrors(err)
	if len(fieldErrors) == 1 {
		return errors.ConfigError(fieldErrors[0].Message)
	}

	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}

	return errors.ConfigError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func (cv *Validator) extractFieldErrors(err error) []FieldError {
	var fieldErrors []FieldError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return fieldErrors
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "port":
		return fmt.Sprintf("%s must be a valid port number between 1 and 65535", err.Field())
	case "duration":
		return fmt.Sprintf("%s must be a positive duration (e.g., '10s')", err.Field())
	case "non_negative_int":
		return fmt.Sprintf("%s must be zero or a positive number", err.Field())
	case "cron_expression":
		return fmt.Sprintf("%s must be a valid cron spec", err.Field())
	default:
		return fmt.Sprintf("%s failed validation: %s", err.Field(), err.Tag())
	}
}

// registerValidators registers the custom rules used by configuration structs
func registerValidators(v *validator.Validate) {
	v.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, err := strconv.Atoi(fl.Field().String())
		return err == nil && port >= 1 && port <= 65535
	})

	// Positive time.Duration strings
	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})

	v.RegisterValidation("non_negative_int", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 0
	})

	// Five-field cron spec or a descriptor such as "@every 30s", the format
	// cron.New schedules by default.
	v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
}

// Global validator instance for convenience
var globalValidator = New()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}
