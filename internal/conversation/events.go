package conversation

import (
	"github.com/lumehealth/intake/internal/profile"
	"github.com/lumehealth/intake/internal/question"
)

// EventKind discriminates orchestrator results.
type EventKind string

const (
	// EventQuestion asks (or re-asks) a question without changing the profile.
	EventQuestion EventKind = "question"
	// EventUpdate reports merged fields plus the next question.
	EventUpdate EventKind = "update"
	// EventComplete reports a profile at 100%.
	EventComplete EventKind = "complete"
	// EventNoop acknowledges input that changed nothing (answers after
	// completion).
	EventNoop EventKind = "noop"
)

// Event is the orchestrator's reply to one user turn.
type Event struct {
	Kind          EventKind
	Message       string
	Question      *question.Question
	UpdatedFields []string
	Profile       profile.Profile
}

// Reply texts. The wording matches what users of the chat surface see, so
// tests pin the prefixes rather than whole sentences.
const (
	completeOnInit    = "Congratulations! Your wellness profile is complete. You're ready to start your personalized wellness journey!"
	completeOnAnswer  = "Congratulations! Your wellness profile is now complete! You're ready for personalized recommendations."
	completeAlready   = "Your profile is complete! Thanks for chatting with me."
	greetingPrefix    = "Hello! Nice to meet you. "
	clarifyPrefix     = "I didn't quite catch that. "
	ackFormat         = "Great! I've noted your %s."
)
