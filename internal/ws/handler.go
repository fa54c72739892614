package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fotnik/internal/domain"
	"fotnik/internal/pipeline"
)

// Inbound message types.
const (
	msgGenerateAdPhotos = "generate_ad_photos"
	msgAddSourcePhoto   = "add_source_photo"
	msgBroadcast        = "broadcast"
)

// envelope is the inbound message shape. The pipelines only consume the
// extracted fields, never the envelope itself.
type envelope struct {
	Type                  string       `json:"type"`
	Image                 string       `json:"image,omitempty"`
	ProductID             string       `json:"product_id,omitempty"`
	BackgroundDescription string       `json:"background_description,omitempty"`
	Auth                  *authPayload `json:"auth,omitempty"`
}

type authPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Runner is the subset of the pipeline service the handler dispatches to.
type Runner interface {
	GenerateAdPhotos(ctx context.Context, sink pipeline.ProgressSink, req pipeline.Request) pipeline.Result
	AddSourcePhoto(ctx context.Context, req pipeline.IngestRequest) pipeline.IngestResult
}

// clientSink satisfies the pipeline's progress sink, fanning events out to
// every connection the client currently holds.
type clientSink struct {
	registry *Registry
	clientID string
}

func (s clientSink) Publish(event domain.ProgressEvent) {
	s.registry.NotifyClient(s.clientID, event)
}

// Handler serves the persistent connection endpoint. Messages on one
// connection are processed one at a time; other connections are unaffected.
type Handler struct {
	registry *Registry
	runner   Runner
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket handler.
func NewHandler(registry *Registry, runner Runner, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		runner:   runner,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients authenticate per message with their token
			// pair, so cross-origin upgrades are allowed here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs the connection's receive loop until the
// peer disconnects.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if clientID == "" {
		http.Error(w, "client_id required", http.StatusBadRequest)
		return
	}
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("client_id", clientID).Msg("ws: upgrade failed")
		return
	}

	conn := NewConn(socket)
	h.registry.Register(clientID, conn)
	h.logger.Info().Str("client_id", clientID).Msg("ws: client connected")
	defer func() {
		h.registry.Unregister(clientID, conn)
		conn.Close()
		h.logger.Info().Str("client_id", clientID).Msg("ws: client disconnected")
	}()

	// Runs detach from the request context: a client disconnect must not
	// abandon durable persistence mid-way. Events to the dead connection
	// are suppressed by the registry instead.
	runCtx := context.WithoutCancel(r.Context())

	for {
		data, err := conn.Read()
		if err != nil {
			return
		}
		h.dispatch(runCtx, clientID, conn, data)
	}
}

func (h *Handler) dispatch(ctx context.Context, clientID string, conn *Conn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.registry.NotifyOne(conn, domain.ProgressEvent{
			Type: domain.EventError,
			Data: map[string]any{"message": "invalid message payload"},
		})
		return
	}

	switch env.Type {
	case msgBroadcast:
		var event domain.ProgressEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return
		}
		h.registry.NotifyAll(event)

	case msgGenerateAdPhotos:
		req := pipeline.Request{
			Image:                 env.Image,
			ProductID:             env.ProductID,
			BackgroundDescription: env.BackgroundDescription,
		}
		if env.Auth != nil {
			req.AccessToken = env.Auth.AccessToken
			req.RefreshToken = env.Auth.RefreshToken
		}
		result := h.runner.GenerateAdPhotos(ctx, clientSink{registry: h.registry, clientID: clientID}, req)
		h.registry.NotifyOne(conn, domain.ProgressEvent{Type: domain.EventProcessComplete, Data: result})

	case msgAddSourcePhoto:
		req := pipeline.IngestRequest{
			Image:     env.Image,
			ProductID: env.ProductID,
		}
		if env.Auth != nil {
			req.AccessToken = env.Auth.AccessToken
			req.RefreshToken = env.Auth.RefreshToken
		}
		result := h.runner.AddSourcePhoto(ctx, req)
		h.registry.NotifyOne(conn, domain.ProgressEvent{Type: domain.EventProcessComplete, Data: result})

	default:
		// Unknown messages are echoed back to their sender verbatim.
		if err := conn.SendRaw(data); err != nil {
			h.logger.Warn().Err(err).Str("client_id", clientID).Msg("ws: failed to echo message")
		}
	}
}
