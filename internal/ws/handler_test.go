package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumehealth/intake/internal/conversation"
	"github.com/lumehealth/intake/internal/profile"
	"github.com/lumehealth/intake/internal/question"
	"github.com/lumehealth/intake/internal/storage"
)

// mockStore is an in-memory conversation.ProfileStore.
type mockStore struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
}

func newMockStore() *mockStore {
	return &mockStore{profiles: make(map[string]profile.Profile)}
}

func (m *mockStore) GetProfile(_ context.Context, userID string) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return profile.Profile{}, storage.ErrNotFound
	}
	return p.Clone(), nil
}

func (m *mockStore) SaveProfile(_ context.Context, p profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p.Clone()
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	orch := conversation.New(newMockStore(), question.NewChain())
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(orch, hub))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws/" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("reading envelope: %v", err)
	}
	return env
}

func sendAnswer(t *testing.T, conn *websocket.Conn, answer string) {
	t.Helper()
	data, _ := json.Marshal(answerPayload{Answer: answer})
	if err := conn.WriteJSON(Envelope{Type: TypeUserAnswer, Data: data}); err != nil {
		t.Fatalf("sending answer: %v", err)
	}
}

func TestHandler_InitSendsFirstQuestion(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-1")

	env := readEnvelope(t, conn)
	if env.Type != TypeInitProfile {
		t.Fatalf("first message type = %q, want %q", env.Type, TypeInitProfile)
	}

	var d initData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decoding init data: %v", err)
	}
	if d.Field != profile.FieldAge {
		t.Errorf("first question field = %q, want %q", d.Field, profile.FieldAge)
	}
	if d.Message == "" {
		t.Error("init message is empty")
	}
	if d.Profile.UserID != "user-1" {
		t.Errorf("profile user id = %q, want user-1", d.Profile.UserID)
	}
}

func TestHandler_AnswerUpdatesProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-2")
	readEnvelope(t, conn) // INIT_PROFILE

	sendAnswer(t, conn, "I'm 28 years old and exercise regularly")

	env := readEnvelope(t, conn)
	if env.Type != TypeProfileUpdate {
		t.Fatalf("type = %q, want %q", env.Type, TypeProfileUpdate)
	}

	var d updateData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decoding update data: %v", err)
	}
	if d.Profile.Age == nil || *d.Profile.Age != 28 {
		t.Errorf("profile age = %v, want 28", d.Profile.Age)
	}
	if d.Profile.ActivityLevel == nil || *d.Profile.ActivityLevel != "active" {
		t.Errorf("profile activity = %v, want active", d.Profile.ActivityLevel)
	}
	if d.Field == "" {
		t.Error("update carries no next question field")
	}
}

func TestHandler_UnclearAnswerReasks(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-3")
	readEnvelope(t, conn) // INIT_PROFILE, asks for age

	sendAnswer(t, conn, "idk")

	env := readEnvelope(t, conn)
	if env.Type != TypeAssistantQuestion {
		t.Fatalf("type = %q, want %q", env.Type, TypeAssistantQuestion)
	}

	var d questionData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decoding question data: %v", err)
	}
	if d.Field != profile.FieldAge {
		t.Errorf("re-ask field = %q, want %q (must not advance)", d.Field, profile.FieldAge)
	}
}

func TestHandler_UserMessageForm(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-4")
	readEnvelope(t, conn)

	data, _ := json.Marshal(messagePayload{Message: "I am 42"})
	if err := conn.WriteJSON(Envelope{Type: TypeUserMessage, Data: data}); err != nil {
		t.Fatalf("sending message: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != TypeProfileUpdate {
		t.Fatalf("type = %q, want %q", env.Type, TypeProfileUpdate)
	}
	var d updateData
	json.Unmarshal(env.Data, &d)
	if d.Profile.Age == nil || *d.Profile.Age != 42 {
		t.Errorf("profile age = %v, want 42", d.Profile.Age)
	}
}

func TestHandler_FullConversationCompletes(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-5")

	answers := map[string]string{
		profile.FieldAge:               "28",
		profile.FieldGender:            "female",
		profile.FieldActivityLevel:     "active",
		profile.FieldDietaryPreference: "vegan",
		profile.FieldSleepQuality:      "poor",
		profile.FieldStressLevel:       "calm",
		profile.FieldHealthGoals:       "lose weight",
	}

	env := readEnvelope(t, conn)
	var init initData
	json.Unmarshal(env.Data, &init)
	field := init.Field

	for turns := 0; turns < 10; turns++ {
		answer, ok := answers[field]
		if !ok {
			t.Fatalf("asked for unexpected field %q", field)
		}
		sendAnswer(t, conn, answer)

		env = readEnvelope(t, conn)
		switch env.Type {
		case TypeProfileUpdate:
			var d updateData
			json.Unmarshal(env.Data, &d)
			field = d.Field
		case TypeProfileComplete:
			var d completeData
			json.Unmarshal(env.Data, &d)
			if d.CompletionPercentage != 100.0 {
				t.Errorf("completion = %v, want 100.0", d.CompletionPercentage)
			}
			if !d.Profile.IsComplete() {
				t.Error("profile not complete in completion event")
			}
			return
		default:
			t.Fatalf("unexpected message type %q", env.Type)
		}
	}
	t.Fatal("conversation did not complete within 10 turns")
}

func TestHandler_UnsupportedTypeSendsError(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "user-6")
	readEnvelope(t, conn)

	if err := conn.WriteJSON(Envelope{Type: "bogus"}); err != nil {
		t.Fatalf("sending message: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != TypeError {
		t.Fatalf("type = %q, want %q", env.Type, TypeError)
	}
}

func TestHub_Stats(t *testing.T) {
	srv, hub := newTestServer(t)

	conn := dial(t, srv, "user-7")
	readEnvelope(t, conn)

	s := hub.Snapshot()
	if s.ActiveConnections != 1 {
		t.Errorf("active = %d, want 1", s.ActiveConnections)
	}
	if s.TotalSessions != 1 {
		t.Errorf("total = %d, want 1", s.TotalSessions)
	}
	if s.PeakConnections != 1 {
		t.Errorf("peak = %d, want 1", s.PeakConnections)
	}

	conn.Close()

	// Unregister happens after the server notices the close.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Snapshot().ActiveConnections == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s = hub.Snapshot()
	if s.ActiveConnections != 0 {
		t.Errorf("active after close = %d, want 0", s.ActiveConnections)
	}
	if s.PeakConnections != 1 {
		t.Errorf("peak after close = %d, want 1", s.PeakConnections)
	}
}
