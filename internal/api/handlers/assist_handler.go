package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voxdesk/voxdesk/internal/pipeline"
	"github.com/voxdesk/voxdesk/internal/providers/tts"
	"github.com/voxdesk/voxdesk/internal/utils"
)

// AssistHandler exposes the synthesis endpoint and the orchestrator counters.
type AssistHandler struct {
	synth tts.Provider
	stats *pipeline.Stats
}

func NewAssistHandler(synth tts.Provider, stats *pipeline.Stats) *AssistHandler {
	return &AssistHandler{synth: synth, stats: stats}
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

type synthesizeResponse struct {
	Audio       []byte `json:"audio"` // base64 on the wire
	AudioFormat string `json:"audio_format"`
}

// Synthesize handles POST /tts: direct text-to-speech through the same
// fallback chain and cache the pipeline uses.
func (h *AssistHandler) Synthesize(c *gin.Context) {
	const op = "AssistHandler.Synthesize"

	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "text is required", nil))
		return
	}

	audio, format, err := h.synth.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "synthesis failed", err))
		return
	}

	c.JSON(200, synthesizeResponse{Audio: audio, AudioFormat: format})
}

// Stats handles GET /stats.
func (h *AssistHandler) Stats(c *gin.Context) {
	c.JSON(200, h.stats.Snapshot())
}
