package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
)

// LeaderboardFetcher serves cached rankings.
type LeaderboardFetcher interface {
	Fetch(ctx context.Context, mode domain.LeaderboardMode, attempt int) (domain.Leaderboard, error)
	Refresh(ctx context.Context, mode domain.LeaderboardMode, attempt int) (domain.Leaderboard, error)
}

// PreferencesRepository persists per-device settings.
type PreferencesRepository interface {
	Load(ctx context.Context, deviceID string) domain.Preferences
	Save(ctx context.Context, prefs domain.Preferences) error
}

// APIHandler serves the request/response endpoints next to the game socket.
type APIHandler struct {
	leaderboard LeaderboardFetcher
	preferences PreferencesRepository
	log         zerolog.Logger
}

func NewAPIHandler(leaderboard LeaderboardFetcher, preferences PreferencesRepository, log zerolog.Logger) *APIHandler {
	return &APIHandler{
		leaderboard: leaderboard,
		preferences: preferences,
		log:         log.With().Str("component", "api").Logger(),
	}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/leaderboard", h.ServeLeaderboard)
	mux.HandleFunc("/preferences", h.ServePreferences)
}

// ServeLeaderboard handles GET /leaderboard?mode=best&attempt=2&refresh=1.
func (h *APIHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	q := r.URL.Query()
	mode := domain.LeaderboardMode(q.Get("mode"))
	if mode == "" {
		mode = domain.ModeAll
	}
	attempt := 0
	if raw := q.Get("attempt"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("attempt must be a positive number"))
			return
		}
		attempt = n
	}

	fetch := h.leaderboard.Fetch
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		fetch = h.leaderboard.Refresh
	}
	board, err := fetch(r.Context(), mode, attempt)
	if err != nil {
		status := http.StatusBadGateway
		if domain.KindOf(err) == domain.KindValidation {
			status = http.StatusBadRequest
		} else {
			h.log.Warn().Err(err).Str("mode", string(mode)).Msg("leaderboard fetch failed")
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// ServePreferences handles GET and PUT /preferences?deviceId=... A PUT may
// carry any subset of the fields.
func (h *APIHandler) ServePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		deviceID := r.URL.Query().Get("deviceId")
		if deviceID == "" {
			deviceID = "device_" + uuid.NewString()
		}
		writeJSON(w, http.StatusOK, h.preferences.Load(r.Context(), deviceID))
	case http.MethodPut, http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid preferences payload"))
			return
		}
		var target struct {
			DeviceID string `json:"deviceId"`
		}
		if err := json.Unmarshal(body, &target); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid preferences payload"))
			return
		}
		if target.DeviceID == "" {
			target.DeviceID = r.URL.Query().Get("deviceId")
		}
		if target.DeviceID == "" {
			writeError(w, http.StatusBadRequest, errors.New("missing deviceId"))
			return
		}
		// fields left out of the body keep their stored values
		prefs := h.preferences.Load(r.Context(), target.DeviceID)
		if err := json.Unmarshal(body, &prefs); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid preferences payload"))
			return
		}
		prefs.DeviceID = target.DeviceID
		if err := h.preferences.Save(r.Context(), prefs); err != nil {
			if domain.KindOf(err) == domain.KindValidation {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			h.log.Error().Err(err).Str("device_id", prefs.DeviceID).Msg("save preferences failed")
			writeError(w, http.StatusInternalServerError, errors.New("preferences not saved"))
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorFor(err))
}
