package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names as they appear on the wire and in storage.
const (
	FieldAge               = "age"
	FieldGender            = "gender"
	FieldActivityLevel     = "activity_level"
	FieldDietaryPreference = "dietary_preference"
	FieldSleepQuality      = "sleep_quality"
	FieldStressLevel       = "stress_level"
	FieldHealthGoals       = "health_goals"
)

// FieldOrder is the canonical field order. Question sequencing, missing-field
// reporting, and extraction tie-breaks all follow this order.
var FieldOrder = []string{
	FieldAge,
	FieldGender,
	FieldActivityLevel,
	FieldDietaryPreference,
	FieldSleepQuality,
	FieldStressLevel,
	FieldHealthGoals,
}

const (
	MinAge = 13
	MaxAge = 120
)

var enumValues = map[string][]string{
	FieldActivityLevel:     {"sedentary", "moderate", "active"},
	FieldDietaryPreference: {"vegan", "vegetarian", "no_preference"},
	FieldSleepQuality:      {"poor", "average", "good"},
	FieldStressLevel:       {"low", "medium", "high"},
}

// EnumValues returns the allowed values for an enumerated field, or nil for
// free-form and numeric fields.
func EnumValues(field string) []string {
	return enumValues[field]
}

// FieldError reports a value that failed field validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateField checks value against the constraints of the named field and
// returns the canonical typed value: int for age, string for everything else.
// Enum values are matched case-insensitively and returned in canonical form.
func ValidateField(name string, value any) (any, error) {
	switch name {
	case FieldAge:
		age, err := coerceInt(value)
		if err != nil {
			return nil, &FieldError{Field: name, Reason: "must be a whole number"}
		}
		if age < MinAge || age > MaxAge {
			return nil, &FieldError{Field: name, Reason: fmt.Sprintf("must be between %d and %d", MinAge, MaxAge)}
		}
		return age, nil

	case FieldActivityLevel, FieldDietaryPreference, FieldSleepQuality, FieldStressLevel:
		s, ok := value.(string)
		if !ok {
			return nil, &FieldError{Field: name, Reason: "must be a string"}
		}
		canonical := strings.ToLower(strings.TrimSpace(s))
		for _, allowed := range enumValues[name] {
			if canonical == allowed {
				return canonical, nil
			}
		}
		return nil, &FieldError{
			Field:  name,
			Reason: fmt.Sprintf("must be one of: %s", strings.Join(enumValues[name], ", ")),
		}

	case FieldGender, FieldHealthGoals:
		s, ok := value.(string)
		if !ok {
			return nil, &FieldError{Field: name, Reason: "must be a string"}
		}
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, &FieldError{Field: name, Reason: "must not be empty"}
		}
		return trimmed, nil

	default:
		return nil, &FieldError{Field: name, Reason: "unknown field"}
	}
}

// coerceInt accepts the integer encodings that show up in practice: native
// ints, JSON numbers (float64), and numeric strings.
func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("not a whole number: %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
