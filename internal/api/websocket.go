package api

import (
	"bytes"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/middleware"
)

const (
	liveMaxFrameBytes = 64 * 1024
	liveWriteTimeout  = 10 * time.Second
	liveIdleTimeout   = 5 * time.Minute
)

// liveFrame is the server's reply to one case frame.
type liveFrame struct {
	Assessment *domain.Assessment `json:"assessment,omitempty"`
	Error      *domain.APIError   `json:"error,omitempty"`
}

// handleLiveAssess re-assesses every case frame the client sends, so a form
// can show results while it is being filled in.
func (s *Server) handleLiveAssess(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	requestID := c.GetString(middleware.CorrelationIDKey)
	ctx := c.Request.Context()
	conn.SetReadLimit(liveMaxFrameBytes)
	logger := s.logger.WithField("correlation_id", requestID)
	logger.Debug("Live assessment session opened")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(liveIdleTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("Live assessment session ended unexpectedly")
			}
			return
		}

		var reply liveFrame
		in, err := domain.DecodeCaseInput(bytes.NewReader(message))
		if err == nil {
			reply.Assessment, err = s.deps.Assessor.Assess(ctx, in.Patient, in.Tumor)
		}
		if err != nil {
			reply.Error = liveError(err, requestID)
		}

		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			logger.WithError(err).Warn("Failed to write live assessment")
			return
		}
	}
}

func liveError(err error, requestID string) *domain.APIError {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return domain.NewAPIError(domain.CodeValidation, vErr.Error(), vErr.Field, requestID)
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.NewAPIError(domain.CodeValidation, err.Error(), "", requestID)
	default:
		return domain.NewAPIError(domain.CodeInternalServer, "internal server error", "", requestID)
	}
}
