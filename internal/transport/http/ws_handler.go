package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

// SessionToucher refreshes a session's liveness marker after each change.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string, state app.State) error
}

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	log      zerolog.Logger
	toucher  SessionToucher
}

type WSOption func(*WSHandler)

func WithToucher(t SessionToucher) WSOption { return func(h *WSHandler) { h.toucher = t } }

func WithAllowedOrigin(origin string) WSOption {
	return func(h *WSHandler) {
		if origin == "" || origin == "*" {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return r.Header.Get("Origin") == origin }
	}
}

func NewWSHandler(service *app.GameService, log zerolog.Logger, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service: service,
		log:     log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type helperPayload struct {
	Kind domain.HelperKind `json:"kind"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string      `json:"message"`
	Kind    domain.Kind `json:"kind,omitempty"`
}

// outboundTypes maps session events to protocol message types.
var outboundTypes = map[app.EventType]string{
	app.EventGameStarted:     "gameStarted",
	app.EventQuestion:        "question",
	app.EventQuestionSkipped: "questionSkipped",
	app.EventTick:            "tick",
	app.EventAnswered:        "answerResult",
	app.EventScore:           "score",
	app.EventHelperApplied:   "helperApplied",
	app.EventLevelCompleted:  "levelComplete",
	app.EventGameOver:        "gameOver",
}

// connection is one socket and the session it drives. The session is only
// touched on loop.
type connection struct {
	h       *WSHandler
	conn    *websocket.Conn
	loop    *app.Loop
	session *app.Session
	send    chan outboundMessage[any]
	player  domain.Player
	log     zerolog.Logger
	closed  bool // loop goroutine only
}

// ServeWS upgrades HTTP requests to websockets and runs one game session per
// connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := domain.Player{
		DeviceID: r.URL.Query().Get("deviceId"),
		Name:     r.URL.Query().Get("name"),
		Avatar:   r.URL.Query().Get("avatar"),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	c := &connection{
		h:      h,
		conn:   conn,
		loop:   app.NewLoop(),
		send:   make(chan outboundMessage[any], 64),
		player: player,
		log:    h.log,
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		c.loop.Run(loopCtx)
	}()

	session, err := h.service.NewSession(r.Context(), c.loop, app.EventSinkFunc(c.onEvent))
	if err != nil {
		stopLoop()
		<-loopDone
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorFor(err)})
		return
	}
	c.session = session
	c.log = h.log.With().Str("session_id", session.ID()).Logger()
	defer h.service.Close(session.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				c.log.Debug().Err(err).Msg("ws write error")
				// keep draining so the loop never blocks on a dead socket
				for range c.send {
				}
				return
			}
		}
	}()

	c.loop.Call(func() {
		c.out("session", session.Snapshot())
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !c.loop.Call(func() { c.handle(inbound) }) {
			break
		}
		c.touch()
	}

	// An abandoned game still counts: end it so its result is recorded.
	c.loop.Call(func() {
		c.session.EndGame(false)
		c.closed = true
	})
	stopLoop()
	<-loopDone
	close(c.send)
	<-writerDone
}

func (c *connection) handle(in inboundMessage) {
	switch in.Type {
	case "start":
		var payload startPayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				c.outError("invalid start payload", domain.KindValidation)
				return
			}
		}
		player := c.player
		if payload.Name != "" {
			player.Name = payload.Name
		}
		if payload.Avatar != "" {
			player.Avatar = payload.Avatar
		}
		if err := c.h.service.Start(c.session, player); err != nil {
			c.outErr(err)
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			c.outError("invalid answer payload", domain.KindValidation)
			return
		}
		// a late or duplicate answer is dropped without a reply
		if _, _, err := c.session.SubmitAnswer(payload.Option); err != nil {
			c.outErr(err)
		}
	case "helper":
		var payload helperPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			c.outError("invalid helper payload", domain.KindValidation)
			return
		}
		if _, err := c.session.UseHelper(payload.Kind); err != nil {
			c.outErr(err)
		}
	case "nextLevel":
		if err := c.session.NextLevel(); err != nil {
			c.outErr(err)
		}
	case "restart":
		c.session.Restart()
		c.out("session", c.session.Snapshot())
	case "state":
		c.out("session", c.session.Snapshot())
	default:
		c.outError("unsupported message type", domain.KindValidation)
	}
}

func (c *connection) onEvent(e app.Event) {
	typ, ok := outboundTypes[e.Type]
	if !ok {
		return
	}
	c.out(typ, e.Payload)
}

// out queues a message without blocking the loop. It runs on the loop
// goroutine, which is the only writer to send.
func (c *connection) out(typ string, payload any) {
	if c.closed {
		return
	}
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	default:
		c.log.Warn().Str("type", typ).Msg("client too slow, message dropped")
	}
}

func (c *connection) outErr(err error) {
	c.log.Debug().Err(err).Msg("request rejected")
	c.out("error", errorFor(err))
}

func (c *connection) outError(msg string, kind domain.Kind) {
	c.out("error", errorPayload{Message: msg, Kind: kind})
}

func (c *connection) touch() {
	if c.h.toucher == nil {
		return
	}
	var state app.State
	if !c.loop.Call(func() { state = c.session.State() }) {
		return
	}
	if err := c.h.toucher.Touch(context.Background(), c.session.ID(), state); err != nil {
		c.log.Debug().Err(err).Msg("session touch failed")
	}
}

func errorFor(err error) errorPayload {
	return errorPayload{Message: err.Error(), Kind: domain.KindOf(err)}
}
