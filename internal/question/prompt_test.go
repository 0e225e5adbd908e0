package question

import (
	"strings"
	"testing"
)

func TestParseQuestion_JSON(t *testing.T) {
	raw := `{"question": "How active are you day to day?", "field": "activity_level"}`
	q := parseQuestion(raw, "activity_level")

	if q.Text != "How active are you day to day?" {
		t.Errorf("text = %q", q.Text)
	}
	if q.Field != "activity_level" {
		t.Errorf("field = %q, want activity_level", q.Field)
	}
	if q.Hint == "" {
		t.Error("hint not attached")
	}
}

func TestParseQuestion_FencedJSON(t *testing.T) {
	raw := "```json\n{\"question\": \"What's your age?\", \"field\": \"age\"}\n```"
	q := parseQuestion(raw, "age")

	if q.Text != "What's your age?" {
		t.Errorf("text = %q", q.Text)
	}
}

func TestParseQuestion_PlainText(t *testing.T) {
	q := parseQuestion("  Tell me about your sleep.  ", "sleep_quality")

	if q.Text != "Tell me about your sleep." {
		t.Errorf("text = %q", q.Text)
	}
	if q.Field != "sleep_quality" {
		t.Errorf("field = %q, want sleep_quality", q.Field)
	}
}

func TestParseQuestion_CoercesWanderingField(t *testing.T) {
	// A model answering for the wrong field must not derail question order.
	raw := `{"question": "Do you eat meat?", "field": "dietary_preference"}`
	q := parseQuestion(raw, "age")

	if q.Field != "age" {
		t.Errorf("field = %q, want age", q.Field)
	}
	if q.Hint != FieldHint("age") {
		t.Errorf("hint = %q, want the age hint", q.Hint)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	qc := testContext("stress_level", "health_goals")
	qc.Completion = 71.43

	prompt := buildUserPrompt(qc)
	if !strings.Contains(prompt, "71.43%") {
		t.Errorf("prompt missing completion: %q", prompt)
	}
	if !strings.Contains(prompt, "stress_level, health_goals") {
		t.Errorf("prompt missing field list: %q", prompt)
	}
	if !strings.Contains(prompt, "Focus on the 'stress_level' field.") {
		t.Errorf("prompt missing focus line: %q", prompt)
	}
}
