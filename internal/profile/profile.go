// Package profile defines the wellness profile schema: seven optional typed
// fields, their validation rules, and the derived completion percentage.
package profile

import (
	"encoding/json"
	"math"
	"time"
)

// Profile is the persisted record of a user's wellness attributes. Unanswered
// fields are nil. Completion is always derived from the fields, never stored.
type Profile struct {
	UserID            string    `json:"user_id"`
	Age               *int      `json:"age"`
	Gender            *string   `json:"gender"`
	ActivityLevel     *string   `json:"activity_level"`
	DietaryPreference *string   `json:"dietary_preference"`
	SleepQuality      *string   `json:"sleep_quality"`
	StressLevel       *string   `json:"stress_level"`
	HealthGoals       *string   `json:"health_goals"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// New creates an empty profile for userID with both timestamps set to now.
func New(userID string) Profile {
	now := time.Now().UTC()
	return Profile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fieldValue returns the current value of the named field, or nil when unset.
func (p Profile) fieldValue(name string) any {
	switch name {
	case FieldAge:
		if p.Age != nil {
			return *p.Age
		}
	case FieldGender:
		if p.Gender != nil {
			return *p.Gender
		}
	case FieldActivityLevel:
		if p.ActivityLevel != nil {
			return *p.ActivityLevel
		}
	case FieldDietaryPreference:
		if p.DietaryPreference != nil {
			return *p.DietaryPreference
		}
	case FieldSleepQuality:
		if p.SleepQuality != nil {
			return *p.SleepQuality
		}
	case FieldStressLevel:
		if p.StressLevel != nil {
			return *p.StressLevel
		}
	case FieldHealthGoals:
		if p.HealthGoals != nil {
			return *p.HealthGoals
		}
	}
	return nil
}

// Completion returns the percentage of the seven fields that are set,
// rounded to two decimals.
func (p Profile) Completion() float64 {
	set := 0
	for _, name := range FieldOrder {
		if p.fieldValue(name) != nil {
			set++
		}
	}
	pct := float64(set) / float64(len(FieldOrder)) * 100
	return math.Round(pct*100) / 100
}

// IsComplete reports whether all seven fields are set.
func (p Profile) IsComplete() bool {
	for _, name := range FieldOrder {
		if p.fieldValue(name) == nil {
			return false
		}
	}
	return true
}

// MissingFields returns the unset field names in canonical order.
func (p Profile) MissingFields() []string {
	var missing []string
	for _, name := range FieldOrder {
		if p.fieldValue(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// CompletedFields returns the set field names in canonical order.
func (p Profile) CompletedFields() []string {
	var done []string
	for _, name := range FieldOrder {
		if p.fieldValue(name) != nil {
			done = append(done, name)
		}
	}
	return done
}

// Apply validates and merges updates into the profile. Each accepted value
// overwrites the previous one. The first invalid value aborts the merge and
// is returned as a *FieldError with nothing applied. Returns the names of
// the fields that changed; UpdatedAt is refreshed only when at least one did.
func (p *Profile) Apply(updates map[string]any) ([]string, error) {
	validated := make(map[string]any, len(updates))
	// Validate everything up front so a bad value can't leave a half-merged profile.
	for _, name := range FieldOrder {
		raw, ok := updates[name]
		if !ok {
			continue
		}
		v, err := ValidateField(name, raw)
		if err != nil {
			return nil, err
		}
		validated[name] = v
	}
	for name := range updates {
		if _, known := validated[name]; !known {
			return nil, &FieldError{Field: name, Reason: "unknown field"}
		}
	}

	var applied []string
	for _, name := range FieldOrder {
		v, ok := validated[name]
		if !ok {
			continue
		}
		p.setField(name, v)
		applied = append(applied, name)
	}
	if len(applied) > 0 {
		p.UpdatedAt = time.Now().UTC()
	}
	return applied, nil
}

func (p *Profile) setField(name string, v any) {
	switch name {
	case FieldAge:
		age := v.(int)
		p.Age = &age
	case FieldGender:
		s := v.(string)
		p.Gender = &s
	case FieldActivityLevel:
		s := v.(string)
		p.ActivityLevel = &s
	case FieldDietaryPreference:
		s := v.(string)
		p.DietaryPreference = &s
	case FieldSleepQuality:
		s := v.(string)
		p.SleepQuality = &s
	case FieldStressLevel:
		s := v.(string)
		p.StressLevel = &s
	case FieldHealthGoals:
		s := v.(string)
		p.HealthGoals = &s
	}
}

// Clone returns a deep copy so callers never share pointer fields.
func (p Profile) Clone() Profile {
	out := p
	if p.Age != nil {
		v := *p.Age
		out.Age = &v
	}
	out.Gender = cloneString(p.Gender)
	out.ActivityLevel = cloneString(p.ActivityLevel)
	out.DietaryPreference = cloneString(p.DietaryPreference)
	out.SleepQuality = cloneString(p.SleepQuality)
	out.StressLevel = cloneString(p.StressLevel)
	out.HealthGoals = cloneString(p.HealthGoals)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// MarshalJSON emits the profile with a derived completion_percentage field.
// Completion is computed at marshal time so a stored snapshot can never
// disagree with the field values.
func (p Profile) MarshalJSON() ([]byte, error) {
	type alias Profile
	return json.Marshal(struct {
		alias
		CompletionPercentage float64 `json:"completion_percentage"`
	}{alias(p), p.Completion()})
}
