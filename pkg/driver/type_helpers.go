package driver

import "fmt"

// Safe conversions for values read back from graph databases. Bolt and
// Ladybug both return untyped values; these helpers never panic.

// TypeConversionError represents an error during type conversion from database types.
type TypeConversionError struct {
	Expected string
	Actual   string
	Field    string
}

func (e *TypeConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("type conversion error for field %q: expected %s, got %s", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("type conversion error: expected %s, got %s", e.Expected, e.Actual)
}

// NewTypeConversionError creates a new TypeConversionError.
func NewTypeConversionError(expected, actual, field string) *TypeConversionError {
	return &TypeConversionError{
		Expected: expected,
		Actual:   actual,
		Field:    field,
	}
}

// AsString safely converts an interface{} to string.
// Returns the string and true if successful, empty string and false otherwise.
func AsString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AsInt64 converts any signed integer to int64.
// Returns the int64 and true if successful, 0 and false otherwise.
func AsInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int32:
		return int64(i), true
	case int:
		return int64(i), true
	}
	return 0, false
}

// MustString converts an interface{} to string or returns an error.
func MustString(v any, field string) (string, error) {
	s, ok := AsString(v)
	if !ok {
		return "", NewTypeConversionError("string", fmt.Sprintf("%T", v), field)
	}
	return s, nil
}

// MustInt64 converts an interface{} to int64 or returns an error.
func MustInt64(v any, field string) (int64, error) {
	i, ok := AsInt64(v)
	if !ok {
		return 0, NewTypeConversionError("int64", fmt.Sprintf("%T", v), field)
	}
	return i, nil
}
