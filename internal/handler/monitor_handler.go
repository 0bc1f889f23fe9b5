package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/response"
	"github.com/skillgate/assess-backend/internal/service"
	ws "github.com/skillgate/assess-backend/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live session progress to recruiters over WebSocket.
type MonitorHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       gorilla.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorSubmission godoc
// WS /ws/v1/recruiter/sessions/:submission_id/monitor
// Upgrades to WebSocket, sends the current session snapshot and then forwards
// every progress event published for the submission.
func (h *MonitorHandler) MonitorSubmission(c *gin.Context) {
	submissionID := c.Param("submission_id")

	// Resolve the session before upgrading so a plain 404 can still be sent.
	rec, err := h.sessionService.GetSnapshot(c.Request.Context(), "", submissionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAbsentSession)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("submission_id", submissionID).Logger()
	wsLog.Info().Msg("Recruiter attached to live monitor")

	if err := ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Data: rec}); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to send initial snapshot")
		return
	}

	reqCtx := c.Request.Context()

	channelName := config.CacheKey.SubmissionProgressChannel(submissionID)
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	msgCh := pubsub.Channel()

	// Client frames are read in a separate goroutine but answered only from
	// the select loop below: the connection allows a single concurrent
	// writer, and progress forwarding already writes there.
	actions := make(chan ws.Action)
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			select {
			case actions <- req.Action:
			case <-reqCtx.Done():
				return
			}
		}
	}()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	for {
		select {
		case <-reqCtx.Done():
			wsLog.Info().Msg("Recruiter disconnected from live monitor")
			return

		case <-clientGone:
			wsLog.Debug().Msg("Monitor connection closed")
			return

		case action := <-actions:
			var err error
			if action == ws.ActionPing {
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			} else {
				wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}
			if err != nil {
				return
			}

		case msg := <-msgCh:
			// Forward the published JSON directly; it is already the event
			// payload shape.
			if err := ws.WriteTyped(conn, ws.ProgressResponse{Event: ws.EventProgress, Data: json.RawMessage(msg.Payload)}); err != nil {
				wsLog.Warn().Err(err).Msg("Failed to forward progress event")
				return
			}

		case <-keepAliveTicker.C:
			if err := conn.WriteControl(gorilla.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				wsLog.Debug().Msg("Keep-alive ping failed, closing")
				return
			}
		}
	}
}
