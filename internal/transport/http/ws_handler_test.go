package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
)

type resultSink struct {
	mu      sync.Mutex
	results []domain.GameResult
}

func (s *resultSink) Record(r domain.GameResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

func (s *resultSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func newGameServer(t *testing.T, results app.ResultRecorder) (*httptest.Server, *memory.SessionStore) {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.FeedbackDelay = 10 * time.Millisecond
	store := memory.NewSessionStore()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleSet()), time.Minute)
	service := app.NewGameService(store, questions, app.WithConfig(cfg), app.WithResults(results))
	wsHandler := NewWSHandler(service, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func TestWebSocketGameFlow(t *testing.T) {
	results := &resultSink{}
	server, store := newGameServer(t, results)

	u := "ws" + server.URL[len("http"):] + "/ws?deviceId=dev-1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "session")
	if store.Len() != 1 {
		t.Fatalf("expected a registered session, got %d", store.Len())
	}

	send(t, conn, "start", nil)
	readNext(conn, t, "gameStarted")
	_, question := readNext(conn, t, "question")
	if question["levelLabel"] != "سهل" {
		t.Fatalf("expected easy level label, got %v", question["levelLabel"])
	}

	send(t, conn, "answer", map[string]any{"option": "4"})
	_, result := readUntil(conn, t, "answerResult")
	if result["correct"] != true || result["score"].(float64) != 200 {
		t.Fatalf("unexpected answer result: %v", result)
	}

	// duplicate answers are dropped without a reply
	send(t, conn, "answer", map[string]any{"option": "3"})
	readUntil(conn, t, "levelComplete")

	send(t, conn, "helper", map[string]any{"kind": "fiftyFifty"})
	_, errPayload := readNext(conn, t, "error")
	if errPayload["kind"] != string(domain.KindState) {
		t.Fatalf("expected state error, got %v", errPayload)
	}

	send(t, conn, "nextLevel", nil)
	_, question = readUntil(conn, t, "question")
	if question["level"] != "medium" {
		t.Fatalf("expected medium question, got %v", question["level"])
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for (results.count() == 0 || store.Len() != 0) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if results.count() != 1 {
		t.Fatalf("expected abandoned game to be recorded, got %d", results.count())
	}
	if store.Len() != 0 {
		t.Fatalf("expected session removed on disconnect")
	}
}

func TestWebSocketRejectsBadName(t *testing.T) {
	server, _ := newGameServer(t, &resultSink{})
	u := "ws" + server.URL[len("http"):] + "/ws?name=x"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "session")
	send(t, conn, "start", nil)
	_, payload := readNext(conn, t, "error")
	if payload["kind"] != string(domain.KindValidation) {
		t.Fatalf("expected state error, got %v", payload)
	}

	send(t, conn, "start", map[string]any{"name": "Layla"})
	readNext(conn, t, "gameStarted")
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	payload := map[string]any{}
	_ = json.Unmarshal(msg.Payload, &payload)
	return msg.Type, payload
}

// readUntil skips ticks and other events until one of type expect arrives.
func readUntil(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 50; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == expect {
			return typ, payload
		}
	}
	t.Fatalf("no %s message", expect)
	return "", nil
}

func sampleSet() domain.QuestionSet {
	var set domain.QuestionSet
	for _, level := range domain.DefaultLevels() {
		set.Questions = append(set.Questions, domain.Question{
			Text:          "What is 2 + 2? (" + string(level.Name) + ")",
			Options:       []string{"3", "4", "5", "22"},
			CorrectAnswer: "4",
			Level:         level.Name,
		})
	}
	return set
}
