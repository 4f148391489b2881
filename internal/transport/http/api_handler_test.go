package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/sqlite"
	"trivia-game-service/internal/leaderboard"
)

func newAPIServer(t *testing.T) (*httptest.Server, *memory.ResultStore) {
	t.Helper()
	results := memory.NewResultStore()
	client := leaderboard.NewClient(results, memory.NewLeaderboardCache(), nil, leaderboard.Config{}, zerolog.Nop())

	prefs, err := sqlite.NewPreferencesStore(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open preferences: %v", err)
	}
	t.Cleanup(func() { _ = prefs.Close() })

	mux := http.NewServeMux()
	NewAPIHandler(client, prefs, zerolog.Nop()).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, results
}

func TestLeaderboardEndpoint(t *testing.T) {
	server, results := newAPIServer(t)
	ctx := context.Background()
	finished := time.Unix(1700000000, 0)
	for i, score := range []int{300, 900, 500} {
		_, err := results.SaveResult(ctx, domain.GameResult{
			SessionID:  "s" + string(rune('a'+i)),
			DeviceID:   "device-1",
			PlayerID:   "player-1",
			Name:       "Omar",
			Score:      score,
			Level:      domain.LevelHard,
			FinishedAt: finished.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save result: %v", err)
		}
	}

	var board domain.Leaderboard
	getJSON(t, server.URL+"/leaderboard?mode=all", http.StatusOK, &board)
	if len(board.Entries) != 3 || board.Entries[0].Score != 900 {
		t.Fatalf("unexpected all board: %+v", board.Entries)
	}

	getJSON(t, server.URL+"/leaderboard?mode=best", http.StatusOK, &board)
	if len(board.Entries) != 1 || board.Entries[0].Score != 900 {
		t.Fatalf("expected one deduped entry, got %+v", board.Entries)
	}

	getJSON(t, server.URL+"/leaderboard?mode=attempt&attempt=1", http.StatusOK, &board)
	if len(board.Entries) != 1 || board.Entries[0].Score != 300 {
		t.Fatalf("expected first attempt only, got %+v", board.Entries)
	}

	getJSON(t, server.URL+"/leaderboard?mode=maxAttempt", http.StatusOK, &board)
	if board.MaxAttempt != 3 {
		t.Fatalf("expected max attempt 3, got %d", board.MaxAttempt)
	}

	var errBody map[string]any
	getJSON(t, server.URL+"/leaderboard?mode=weekly", http.StatusBadRequest, &errBody)
	if errBody["kind"] != string(domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", errBody)
	}
	getJSON(t, server.URL+"/leaderboard?attempt=-1", http.StatusBadRequest, &errBody)
}

func TestPreferencesEndpoint(t *testing.T) {
	server, _ := newAPIServer(t)

	var prefs domain.Preferences
	getJSON(t, server.URL+"/preferences?deviceId=device-9", http.StatusOK, &prefs)
	if prefs != domain.DefaultPreferences("device-9") {
		t.Fatalf("expected defaults, got %+v", prefs)
	}

	body := `{"deviceId":"device-9","audioEnabled":false,"volume":0.25,"theme":"light"}`
	resp := put(t, server.URL+"/preferences", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	getJSON(t, server.URL+"/preferences?deviceId=device-9", http.StatusOK, &prefs)
	if prefs.AudioEnabled || prefs.Volume != 0.25 || prefs.Theme != "light" {
		t.Fatalf("unexpected stored preferences: %+v", prefs)
	}

	resp = put(t, server.URL+"/preferences?deviceId=device-9", `{"volume":4,"theme":"light"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range volume, got %d", resp.StatusCode)
	}

	getJSON(t, server.URL+"/preferences", http.StatusOK, &prefs)
	if !strings.HasPrefix(prefs.DeviceID, "device_") {
		t.Fatalf("expected generated device id, got %q", prefs.DeviceID)
	}
}

func TestPreferencesPartialUpdate(t *testing.T) {
	server, _ := newAPIServer(t)

	resp := put(t, server.URL+"/preferences", `{"deviceId":"device-7","audioEnabled":true,"volume":0.3,"theme":"light"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = put(t, server.URL+"/preferences?deviceId=device-7", `{"volume":0.5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for volume-only update, got %d", resp.StatusCode)
	}
	resp = put(t, server.URL+"/preferences", `{"deviceId":"device-7","theme":"dark"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for theme-only update, got %d", resp.StatusCode)
	}

	var prefs domain.Preferences
	getJSON(t, server.URL+"/preferences?deviceId=device-7", http.StatusOK, &prefs)
	want := domain.Preferences{DeviceID: "device-7", AudioEnabled: true, Volume: 0.5, Theme: "dark"}
	if prefs != want {
		t.Fatalf("expected %+v, got %+v", want, prefs)
	}
}

func getJSON(t *testing.T, url string, status int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("get %s: expected %d, got %d", url, status, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func put(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}
