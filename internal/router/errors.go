package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RedirectSignal is returned by a loader or action that wants the navigation to end
// somewhere else. It never reaches an error boundary.
type RedirectSignal struct {
	Location string
}

func (r *RedirectSignal) Error() string {
	return "redirect to " + r.Location
}

// Redirect returns a RedirectSignal for path.
func Redirect(path string) error {
	return &RedirectSignal{Location: path}
}

// ValidationError is an action-level failure shown next to the submitted form.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + v.Fields[name]
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// validationError converts a binding failure into a ValidationError keyed by form field.
func validationError(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: map[string]string{"form": err.Error()}}
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[lowerFirst(fe.Field())] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
