package extract

import (
	"reflect"
	"testing"
)

func TestExtract_CasualInput(t *testing.T) {
	for _, answer := range []string{"hi", "Hello", "hey", "ok", "OKAY", "yes", "no", "x", "", "  "} {
		got := Extract(answer, "age")
		if len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", answer, got)
		}
	}
}

func TestExtract_UnparseableInput(t *testing.T) {
	for _, answer := range []string{"idk", "not sure", "hmm let me think"} {
		got := Extract(answer, "sleep_quality")
		if len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", answer, got)
		}
	}
}

func TestExtract_TargetedEnum(t *testing.T) {
	got := Extract("vegan", "dietary_preference")
	want := map[string]any{"dietary_preference": "vegan"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract(vegan, dietary_preference) = %v, want %v", got, want)
	}
}

func TestExtract_Synonyms(t *testing.T) {
	cases := []struct {
		answer string
		field  string
		want   any
	}{
		{"I work out daily", "activity_level", "active"},
		{"mostly plant-based these days", "dietary_preference", "vegan"},
		{"I sit at a desk all day", "activity_level", "sedentary"},
		{"pretty overwhelmed lately", "stress_level", "high"},
		{"I sleep terribly", "sleep_quality", "poor"},
		{"it's decent I guess", "sleep_quality", "average"},
		{"omnivore, I eat everything", "dietary_preference", "no_preference"},
	}
	for _, tc := range cases {
		got := Extract(tc.answer, tc.field)
		if got[tc.field] != tc.want {
			t.Errorf("Extract(%q, %s) = %v, want %s=%v", tc.answer, tc.field, got, tc.field, tc.want)
		}
	}
}

func TestExtract_Opportunistic(t *testing.T) {
	got := Extract("I'm 28 years old and exercise regularly", "")
	want := map[string]any{"age": 28, "activity_level": "active"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract(no hint) = %v, want %v", got, want)
	}
}

func TestExtract_MultiFieldUtterance(t *testing.T) {
	got := Extract("I'm a 28-year-old active male", "")
	if got["age"] != 28 {
		t.Errorf("age = %v, want 28", got["age"])
	}
	if got["activity_level"] != "active" {
		t.Errorf("activity_level = %v, want active", got["activity_level"])
	}
	if got["gender"] != "I'm a 28-year-old active male" {
		t.Errorf("gender = %v, want the raw answer", got["gender"])
	}
}

func TestExtract_AgeBoundaries(t *testing.T) {
	cases := []struct {
		answer string
		want   any
	}{
		{"I'm 13", 13},
		{"120 years young", 120},
		{"I'm 12", nil},
		{"121 last birthday", nil},
		{"no numbers here", nil},
	}
	for _, tc := range cases {
		got := Extract(tc.answer, "age")
		if got["age"] != tc.want {
			t.Errorf("Extract(%q, age)[age] = %v, want %v", tc.answer, got["age"], tc.want)
		}
	}
}

func TestExtract_AgeFirstNumberOnly(t *testing.T) {
	// The first standalone number decides; an out-of-range first number
	// rejects the whole answer rather than scanning on.
	got := Extract("I run 5 miles and I'm 28", "age")
	if got["age"] != nil {
		t.Errorf("age = %v, want nil (first number 5 is out of range)", got["age"])
	}
}

func TestExtract_HintBeatsCanonicalOrder(t *testing.T) {
	// "average" appears in both sleep_quality and stress_level vocabularies.
	// The hinted field must claim it; the opportunistic pass may still fill
	// the other field independently.
	got := Extract("average", "stress_level")
	if got["stress_level"] != "medium" {
		t.Errorf("stress_level = %v, want medium", got["stress_level"])
	}

	got = Extract("average", "sleep_quality")
	if got["sleep_quality"] != "average" {
		t.Errorf("sleep_quality = %v, want average", got["sleep_quality"])
	}
}

func TestExtract_HealthGoalsTargetedOnly(t *testing.T) {
	got := Extract("I want to lose weight and build muscle", "health_goals")
	if got["health_goals"] != "I want to lose weight and build muscle" {
		t.Errorf("health_goals = %v, want the raw answer", got["health_goals"])
	}

	// Without the hint, goal-like wording must not hijack the field.
	got = Extract("I exercise to stay strong", "")
	if _, ok := got["health_goals"]; ok {
		t.Errorf("health_goals extracted without hint: %v", got)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	first := Extract("I'm a 45 year old woman, vegetarian, sleep is good", "age")
	second := Extract("I'm a 45 year old woman, vegetarian, sleep is good", "age")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input extracted differently: %v vs %v", first, second)
	}
}

func TestExtract_GenderKeepsRawAnswer(t *testing.T) {
	got := Extract("prefer not to say", "gender")
	if got["gender"] != "prefer not to say" {
		t.Errorf("gender = %v, want raw answer", got["gender"])
	}
}

func TestIsGreeting(t *testing.T) {
	if !IsGreeting("Hello ") || !IsGreeting("hi") {
		t.Error("greeting not recognized")
	}
	if IsGreeting("ok") || IsGreeting("hello there friend") {
		t.Error("non-greeting recognized as greeting")
	}
}

func TestIsAcknowledgement(t *testing.T) {
	if !IsAcknowledgement("OK") || !IsAcknowledgement("yes") {
		t.Error("acknowledgement not recognized")
	}
	if IsAcknowledgement("no") || IsAcknowledgement("hi") {
		t.Error("non-acknowledgement recognized")
	}
}
