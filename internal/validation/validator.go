// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package validation provides struct validation using go-playground/validator v10.
//
// Handlers parse raw query and path text into typed request structs and then
// call ValidateStruct before any upstream call is made. Field names in error
// details come from the struct's json tags so they match the parameter names
// clients send.
//
//	type SensorDataRequest struct {
//	    SensorID int64   `json:"sensor_id" validate:"min=0"`
//	    DataType string  `json:"datatype" validate:"required,identifier"`
//	    Value    float64 `json:"value"`
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// identifierPattern bounds free-form names that end up in upstream paths
// (data types, sensor statuses).
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the parameter name that failed validation.
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "100" for "max=100").
func (e *ValidationError) Param() string {
	return e.param
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// NewFieldError builds a RequestValidationError for a parameter that could
// not be parsed into its typed field (for example "longitude=abc").
func NewFieldError(field, message string) *RequestValidationError {
	return &RequestValidationError{
		errors: []ValidationError{{field: field, tag: "parse", message: message}},
	}
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// FieldMessages returns a parameter name to message map for response details.
func (ve *RequestValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(ve.errors))
	for _, err := range ve.errors {
		out[err.field] = err.message
	}
	return out
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		if err := validate.RegisterValidation("identifier", validateIdentifier); err != nil {
			panic(fmt.Sprintf("register identifier validator: %v", err))
		}
	})

	return validate
}

func validateIdentifier(fl validator.FieldLevel) bool {
	return identifierPattern.MatchString(fl.Field().String())
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":    "%s is required",
	"email":       "%s must be a valid email address",
	"hexadecimal": "%s must be hexadecimal",
	"latitude":    "%s must be a valid latitude (-90 to 90)",
	"longitude":   "%s must be a valid longitude (-180 to 180)",
	"identifier":  "%s must be 1-64 letters, digits, '-' or '_'",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":    "%s must be one of: %s",
	"gte":      "%s must be greater than or equal to %s",
	"lte":      "%s must be less than or equal to %s",
	"gt":       "%s must be greater than %s",
	"gtefield": "%s must not be before %s",
	"len":      "%s must be exactly %s characters",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}
	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	isString := fe.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
