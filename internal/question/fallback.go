package question

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumehealth/intake/internal/profile"
)

// fallbackQuestions are the canned per-field questions used when no LLM
// provider is reachable.
var fallbackQuestions = map[string]string{
	profile.FieldAge:               "To get started, could you tell me your age? This helps us tailor recommendations for your life stage.",
	profile.FieldGender:            "What gender do you identify as? This helps us provide more personalized wellness advice.",
	profile.FieldActivityLevel:     "How would you describe your current activity level? Are you more sedentary, moderately active, or very active?",
	profile.FieldDietaryPreference: "Do you follow any specific dietary preferences? For example, are you vegan, vegetarian, or have no specific preference?",
	profile.FieldSleepQuality:      "How would you rate your sleep quality overall? Would you say it's poor, average, or good?",
	profile.FieldStressLevel:       "What's your current stress level like? Would you describe it as low, medium, or high?",
	profile.FieldHealthGoals:       "What are your main health and wellness goals? What would you like to achieve or improve?",
}

// simpleQuestions are the short re-ask variants used for clarifications.
var simpleQuestions = map[string]string{
	profile.FieldAge:               "What's your age?",
	profile.FieldGender:            "How do you identify in terms of gender?",
	profile.FieldActivityLevel:     "How would you describe your current activity level? (sedentary, moderate, or active)",
	profile.FieldDietaryPreference: "Do you have any dietary preferences? (e.g., vegan, vegetarian, or no preference)",
	profile.FieldSleepQuality:      "How would you rate your sleep quality? (poor, average, or good)",
	profile.FieldStressLevel:       "What's your current stress level? (low, medium, or high)",
	profile.FieldHealthGoals:       "What are your main health and wellness goals?",
}

// fieldHints describe the expected answer format per field.
var fieldHints = map[string]string{
	profile.FieldAge:               "a number between 13 and 120",
	profile.FieldGender:            "free text, e.g. male, female, non-binary",
	profile.FieldActivityLevel:     "sedentary, moderate, or active",
	profile.FieldDietaryPreference: "vegan, vegetarian, or no preference",
	profile.FieldSleepQuality:      "poor, average, or good",
	profile.FieldStressLevel:       "low, medium, or high",
	profile.FieldHealthGoals:       "free text describing what you want to achieve",
}

// FieldHint returns the expected-answer hint for a field, or "" for unknown
// fields.
func FieldHint(field string) string {
	return fieldHints[field]
}

// Simple returns the short canned question for a field. It is used for
// clarifying re-asks, where a fresh LLM phrasing would only add noise.
func Simple(field string) Question {
	text, ok := simpleQuestions[field]
	if !ok {
		text = "Could you tell me more about yourself?"
	}
	return Question{Text: text, Field: field, Hint: FieldHint(field)}
}

// Fallback is the terminal generator: deterministic, dependency-free and
// always available.
type Fallback struct{}

// NewFallback returns the deterministic question generator.
func NewFallback() *Fallback {
	return &Fallback{}
}

// Name implements Generator.
func (f *Fallback) Name() string { return "fallback" }

// Available implements Generator. The fallback is always available.
func (f *Fallback) Available(ctx context.Context) bool { return true }

// Generate implements Generator. It never fails.
func (f *Fallback) Generate(ctx context.Context, qc Context) (Question, error) {
	field := qc.TargetField()
	text, ok := fallbackQuestions[field]
	if !ok {
		text = fmt.Sprintf("Could you tell me about your %s?", strings.ReplaceAll(field, "_", " "))
	}
	return Question{Text: text, Field: field, Hint: FieldHint(field)}, nil
}
