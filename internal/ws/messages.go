package ws

import (
	"encoding/json"
	"time"
)

// Message types exchanged over the conversational channel.
const (
	TypeInitProfile       = "INIT_PROFILE"
	TypeUserAnswer        = "USER_ANSWER"
	TypeAssistantQuestion = "ASSISTANT_QUESTION"
	TypeProfileUpdate     = "PROFILE_UPDATE"
	TypeProfileComplete   = "PROFILE_COMPLETE"
	TypeError             = "ERROR"

	// TypeUserMessage is the chat-UI form of an answer: a plain message
	// instead of the structured USER_ANSWER payload.
	TypeUserMessage = "user_message"
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func newEnvelope(msgType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// answerPayload is the inbound USER_ANSWER body.
type answerPayload struct {
	Answer string `json:"answer"`
	// Field optionally overrides the current-question hint.
	Field string `json:"field,omitempty"`
}

// messagePayload is the inbound user_message body.
type messagePayload struct {
	Message string `json:"message"`
}

// errorPayload is the outbound ERROR body.
type errorPayload struct {
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
