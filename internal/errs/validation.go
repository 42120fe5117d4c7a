package errs

import "strings"

// FieldError describes a single rejected field.
type FieldError struct {
	Field  string
	Detail string
}

// ValidationError collects field-level failures of one write.
type ValidationError struct {
	Fields []FieldError
}

// Add records a failure for field.
func (e *ValidationError) Add(field, detail string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Detail: detail})
}

// OrNil returns e when it holds at least one failure.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Detail)
	}
	return "validation: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation as the matching sentinel.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError with a single field failure.
func Invalid(field, detail string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Detail: detail}}}
}
