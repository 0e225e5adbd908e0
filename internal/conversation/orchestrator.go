// Package conversation drives the question/answer loop that fills a wellness
// profile: ask for the first missing field, extract what the answer carries,
// persist, repeat until complete.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lumehealth/intake/internal/extract"
	"github.com/lumehealth/intake/internal/profile"
	"github.com/lumehealth/intake/internal/question"
	"github.com/lumehealth/intake/internal/storage"
)

// ProfileStore defines the storage operations the orchestrator needs.
// Implemented by *storage.Tiered.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	SaveProfile(ctx context.Context, p profile.Profile) error
}

// QuestionSource phrases the next question. Implemented by *question.Chain.
type QuestionSource interface {
	Generate(ctx context.Context, qc question.Context) (question.Question, error)
}

// PersistenceError wraps a storage failure on the answer path. The session is
// not advanced past a failed save, so the same answer can be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persisting profile: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

type sessionState string

const (
	stateAwaitingFirstAnswer sessionState = "awaiting_first_answer"
	stateAwaitingAnswer      sessionState = "awaiting_answer"
	stateComplete            sessionState = "complete"
)

// session is the volatile per-user conversation state. It is never persisted;
// after a restart it is re-derived from the stored profile.
type session struct {
	mu           sync.Mutex
	state        sessionState
	currentField string
}

// Orchestrator owns the conversational state machine. Turns for the same
// user are serialized on the session mutex; different users run in parallel.
type Orchestrator struct {
	store     ProfileStore
	questions QuestionSource

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an Orchestrator.
func New(store ProfileStore, questions QuestionSource) *Orchestrator {
	return &Orchestrator{
		store:     store,
		questions: questions,
		sessions:  make(map[string]*session),
	}
}

func (o *Orchestrator) session(userID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[userID]
	if !ok {
		s = &session{state: stateAwaitingFirstAnswer}
		o.sessions[userID] = s
	}
	return s
}

// EndSession drops the per-user conversation state. The persisted profile is
// untouched; a later Initialize resumes from it.
func (o *Orchestrator) EndSession(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, userID)
}

// ActiveSessions reports the number of live conversation sessions.
func (o *Orchestrator) ActiveSessions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// Initialize loads (or creates) the profile for userID and returns the
// opening turn: the first question, or a completion event for an already
// complete profile. Calling it again is safe; profile fields are never reset.
func (o *Orchestrator) Initialize(ctx context.Context, userID string) (Event, error) {
	s := o.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := o.loadOrCreate(ctx, userID)
	if err != nil {
		return Event{}, err
	}

	if p.IsComplete() {
		s.state = stateComplete
		s.currentField = ""
		return Event{Kind: EventComplete, Message: completeOnInit, Profile: p}, nil
	}

	q := o.nextQuestion(ctx, p)
	s.state = stateAwaitingFirstAnswer
	s.currentField = q.Field

	return Event{Kind: EventQuestion, Message: q.Text, Question: &q, Profile: p}, nil
}

// Answer processes one user answer:
//  1. extract field values, hinted by the current question's field
//  2. nothing extracted: re-ask the same field with a clarification
//  3. merge and persist; a save failure keeps the session where it was
//  4. profile complete: completion event; otherwise ask for the next field
//
// Answers arriving after completion change nothing and get a noop event.
func (o *Orchestrator) Answer(ctx context.Context, userID, text string) (Event, error) {
	return o.AnswerFor(ctx, userID, text, "")
}

// AnswerFor is Answer with an explicit field hint. A non-empty known field
// name overrides the session's current question field for this turn; an
// unknown or empty hint leaves it alone.
func (o *Orchestrator) AnswerFor(ctx context.Context, userID, text, field string) (Event, error) {
	s := o.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := o.loadOrCreate(ctx, userID)
	if err != nil {
		return Event{}, err
	}

	if s.state == stateComplete || p.IsComplete() {
		s.state = stateComplete
		return Event{Kind: EventNoop, Message: completeAlready, Profile: p}, nil
	}

	if field != "" && knownField(field) {
		s.currentField = field
	}

	// Crash recovery: a session created by this call has no current field
	// yet, so aim at the head of the missing list.
	if s.currentField == "" {
		s.currentField = p.MissingFields()[0]
	}

	askedField := s.currentField
	updates := extract.Extract(text, askedField)
	if len(updates) == 0 {
		return o.clarify(text, askedField, p), nil
	}

	applied, err := p.Apply(updates)
	if err != nil {
		return Event{}, fmt.Errorf("applying extracted updates: %w", err)
	}

	if err := o.store.SaveProfile(ctx, p); err != nil {
		return Event{}, &PersistenceError{Err: err}
	}

	if p.IsComplete() {
		s.state = stateComplete
		s.currentField = ""
		return Event{
			Kind:          EventComplete,
			Message:       completeOnAnswer,
			UpdatedFields: applied,
			Profile:       p,
		}, nil
	}

	q := o.nextQuestion(ctx, p)
	s.state = stateAwaitingAnswer
	s.currentField = q.Field

	ack := fmt.Sprintf(ackFormat, humanize(ackField(applied, askedField)))
	return Event{
		Kind:          EventUpdate,
		Message:       ack + " " + q.Text,
		Question:      &q,
		UpdatedFields: applied,
		Profile:       p,
	}, nil
}

// clarify re-asks the current field. Greetings get a greeting back,
// acknowledgements just get the question again, anything else an explicit
// clarification.
func (o *Orchestrator) clarify(text, field string, p profile.Profile) Event {
	q := question.Simple(field)

	var msg string
	switch {
	case extract.IsGreeting(text):
		msg = greetingPrefix + q.Text
	case extract.IsAcknowledgement(text):
		msg = q.Text
	default:
		msg = clarifyPrefix + q.Text
	}

	return Event{Kind: EventQuestion, Message: msg, Question: &q, Profile: p}
}

// loadOrCreate returns the stored profile, creating and persisting an empty
// one for new users.
func (o *Orchestrator) loadOrCreate(ctx context.Context, userID string) (profile.Profile, error) {
	p, err := o.store.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return profile.Profile{}, fmt.Errorf("loading profile: %w", err)
	}

	p = profile.New(userID)
	if err := o.store.SaveProfile(ctx, p); err != nil {
		return profile.Profile{}, &PersistenceError{Err: err}
	}
	return p, nil
}

// nextQuestion runs the generator chain for the profile's head missing field.
func (o *Orchestrator) nextQuestion(ctx context.Context, p profile.Profile) question.Question {
	qc := question.Context{
		Profile:       p,
		MissingFields: p.MissingFields(),
		Completion:    p.Completion(),
	}
	q, err := o.questions.Generate(ctx, qc)
	if err != nil {
		slog.Warn("question generation failed, using canned question", "field", qc.TargetField(), "error", err)
		return question.Simple(qc.TargetField())
	}
	return q
}

// ackField picks the field to acknowledge: the one the question asked for
// when the answer filled it, otherwise the first merged field.
func ackField(applied []string, askedField string) string {
	for _, f := range applied {
		if f == askedField {
			return f
		}
	}
	return applied[0]
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func knownField(name string) bool {
	for _, f := range profile.FieldOrder {
		if f == name {
			return true
		}
	}
	return false
}
