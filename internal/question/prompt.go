package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an experienced wellness coach creating personalized health profiles. Your goal is to ask thoughtful, engaging questions that feel conversational and supportive.

Guidelines:
- Ask one question at a time
- Make questions feel personal and relevant
- Be encouraging and non-judgmental
- Focus on understanding the person's lifestyle and goals
- Always return valid JSON with 'question' and 'field' keys

Example response: {"question": "What does your typical day look like in terms of physical activity?", "field": "activity_level"}`

// buildUserPrompt renders the profile state for the model.
func buildUserPrompt(qc Context) string {
	snapshot, err := json.MarshalIndent(qc.Profile, "", "  ")
	if err != nil {
		snapshot = []byte("{}")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current profile completion: %.2f%%\n", qc.Completion)
	fmt.Fprintf(&sb, "Missing information: %s\n", strings.Join(qc.MissingFields, ", "))
	fmt.Fprintf(&sb, "Current profile data: %s\n", snapshot)
	fmt.Fprintf(&sb, "Focus on the '%s' field.", qc.TargetField())
	return sb.String()
}

// parseQuestion interprets a model response: strict JSON first, then a
// fenced JSON block, then the raw text as the question itself. The result is
// always coerced onto wantField so a wandering model cannot derail the
// canonical question order.
func parseQuestion(raw, wantField string) Question {
	var q Question
	if err := json.Unmarshal([]byte(stripFence(raw)), &q); err == nil && q.Text != "" {
		q.Field = wantField
		q.Hint = FieldHint(wantField)
		return q
	}

	return Question{
		Text:  strings.TrimSpace(raw),
		Field: wantField,
		Hint:  FieldHint(wantField),
	}
}

// stripFence removes a surrounding markdown code fence, if any. Models often
// wrap JSON in ```json ... ``` despite instructions.
func stripFence(s string) string {
	start := strings.Index(s, "```json")
	if start == -1 {
		start = strings.Index(s, "```")
		if start == -1 {
			return strings.TrimSpace(s)
		}
		start += 3
	} else {
		start += len("```json")
	}

	end := strings.Index(s[start:], "```")
	if end == -1 {
		return strings.TrimSpace(s[start:])
	}
	return strings.TrimSpace(s[start : start+end])
}
