package extract

import "github.com/lumehealth/intake/internal/profile"

// enumRule maps trigger vocabulary to a canonical enum value. Rules for a
// field are checked in order; the first rule with a trigger present in the
// answer wins.
type enumRule struct {
	value    string
	triggers []string
}

var enumRules = map[string][]enumRule{
	profile.FieldActivityLevel: {
		{value: "sedentary", triggers: []string{"sedentary", "sit", "desk", "inactive", "low"}},
		{value: "active", triggers: []string{"active", "exercise", "gym", "sport", "run", "high", "work out", "workout"}},
		{value: "moderate", triggers: []string{"moderate", "medium", "some", "occasionally"}},
	},
	profile.FieldDietaryPreference: {
		{value: "vegan", triggers: []string{"vegan", "plant-based", "plant based"}},
		{value: "vegetarian", triggers: []string{"vegetarian"}},
		{value: "no_preference", triggers: []string{"no preference", "omnivore", "everything", "anything"}},
	},
	profile.FieldSleepQuality: {
		{value: "poor", triggers: []string{"poor", "bad", "terrible", "awful"}},
		{value: "good", triggers: []string{"good", "great", "excellent", "well"}},
		{value: "average", triggers: []string{"average", "okay", "fair", "decent"}},
	},
	profile.FieldStressLevel: {
		{value: "high", triggers: []string{"high", "stressed", "overwhelmed", "anxious"}},
		{value: "low", triggers: []string{"low", "calm", "relaxed", "peaceful"}},
		{value: "medium", triggers: []string{"medium", "moderate", "normal", "average"}},
	},
}

// genderTriggers mark an answer as a gender response; the stored value is the
// raw trimmed answer, not the trigger.
var genderTriggers = []string{
	"male", "female", "man", "woman", "non-binary", "nonbinary", "other", "prefer not to say",
}

// goalTriggers mark an answer as a health-goals response; the stored value is
// the raw trimmed answer.
var goalTriggers = []string{
	"lose", "gain", "weight", "fitness", "health", "muscle", "exercise", "diet",
	"wellness", "goal", "fit", "strong", "slim", "tone", "build", "cardio", "strength",
}

// greetings and acknowledgements never carry profile data on their own, but
// they steer the conversational reply differently, so they are kept apart.
var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
}

var acknowledgements = map[string]bool{
	"ok":   true,
	"okay": true,
	"yes":  true,
}

// casualAnswers is the full guard set: greetings, acknowledgements and a
// bare "no".
var casualAnswers = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"ok":    true,
	"okay":  true,
	"yes":   true,
	"no":    true,
}
