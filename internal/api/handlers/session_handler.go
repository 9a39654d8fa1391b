package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voxdesk/voxdesk/internal/services"
	"github.com/voxdesk/voxdesk/internal/utils"
)

// SessionHandler serves the archived conversation history.
type SessionHandler struct {
	archive services.ArchiveService
}

func NewSessionHandler(archive services.ArchiveService) *SessionHandler {
	return &SessionHandler{archive: archive}
}

// Utterances handles GET /sessions/:session_id/utterances?limit=N, newest
// first.
func (h *SessionHandler) Utterances(c *gin.Context) {
	const op = "SessionHandler.Utterances"

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil))
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	rows, err := h.archive.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(200, gin.H{"session_id": sessionID, "count": len(rows), "utterances": rows})
}
