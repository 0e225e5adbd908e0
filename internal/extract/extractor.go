// Package extract turns free-text answers into typed profile field updates
// using an explicit per-field rule table. Matching is substring-based over
// the lowercased answer, deterministic, and never errors: anything it cannot
// confidently recognize is simply omitted from the result.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lumehealth/intake/internal/profile"
)

// firstNumber matches the first standalone 1-3 digit number in an answer.
var firstNumber = regexp.MustCompile(`\b\d{1,3}\b`)

// Extract derives field updates from a raw answer. currentField is the field
// the last question targeted and may be empty.
//
// The targeted recognizer runs first, then every other field's recognizer in
// canonical order, so one utterance can fill several fields. Only the first
// accepted value per field is kept; conflicting matches are resolved by rule
// order, never by an error. Casual input (greetings, bare yes/no, anything
// under two characters) yields an empty set.
//
// Free-form health goals are only recognized when currentField asks for them:
// their trigger vocabulary overlaps the enum vocabularies too much to scan
// opportunistically.
func Extract(answer, currentField string) map[string]any {
	updates := make(map[string]any)

	trimmed := strings.TrimSpace(answer)
	lower := strings.ToLower(trimmed)
	if len(trimmed) < 2 || casualAnswers[lower] {
		return updates
	}

	if currentField != "" {
		if v, ok := recognize(currentField, trimmed, lower, true); ok {
			updates[currentField] = v
		}
	}

	for _, field := range profile.FieldOrder {
		if field == currentField {
			continue
		}
		if v, ok := recognize(field, trimmed, lower, false); ok {
			updates[field] = v
		}
	}

	return updates
}

// IsGreeting reports whether the answer is a bare greeting such as "hi".
func IsGreeting(answer string) bool {
	return greetings[strings.ToLower(strings.TrimSpace(answer))]
}

// IsAcknowledgement reports whether the answer is a bare "ok"/"yes" style
// reply.
func IsAcknowledgement(answer string) bool {
	return acknowledgements[strings.ToLower(strings.TrimSpace(answer))]
}

// recognize runs the recognizer for a single field. targeted reports whether
// the field was hinted by the last question.
func recognize(field, trimmed, lower string, targeted bool) (any, bool) {
	switch field {
	case profile.FieldAge:
		return recognizeAge(trimmed)

	case profile.FieldGender:
		if containsAny(lower, genderTriggers) {
			return trimmed, true
		}
		return nil, false

	case profile.FieldHealthGoals:
		if !targeted {
			return nil, false
		}
		if len(trimmed) >= 3 && containsAny(lower, goalTriggers) {
			return trimmed, true
		}
		return nil, false

	default:
		for _, rule := range enumRules[field] {
			if containsAny(lower, rule.triggers) {
				return rule.value, true
			}
		}
		return nil, false
	}
}

// recognizeAge parses the first standalone number and accepts it only inside
// the valid age range. A first number outside the range rejects the answer;
// it does not scan further.
func recognizeAge(answer string) (any, bool) {
	m := firstNumber.FindString(answer)
	if m == "" {
		return nil, false
	}
	age, err := strconv.Atoi(m)
	if err != nil {
		return nil, false
	}
	if age < profile.MinAge || age > profile.MaxAge {
		return nil, false
	}
	return age, true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
