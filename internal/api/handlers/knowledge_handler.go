package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voxdesk/voxdesk/internal/services"
	"github.com/voxdesk/voxdesk/internal/utils"
)

type KnowledgeHandler struct {
	knowledge services.KnowledgeService
}

func NewKnowledgeHandler(knowledge services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

type ingestRequest struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category string          `json:"category"`
	Metadata json.RawMessage `json:"metadata"`
}

// Ingest handles POST /knowledge.
func (h *KnowledgeHandler) Ingest(c *gin.Context) {
	const op = "KnowledgeHandler.Ingest"

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	doc, err := h.knowledge.Ingest(c.Request.Context(), req.Title, req.Content, req.Category, req.Metadata)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(201, gin.H{"id": doc.ID, "title": doc.Title, "category": doc.Category})
}

// List handles GET /knowledge?category=...&limit=N. Embeddings are internal
// and never leave the service.
func (h *KnowledgeHandler) List(c *gin.Context) {
	const op = "KnowledgeHandler.List"

	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "category is required", nil))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	docs, err := h.knowledge.ListByCategory(c.Request.Context(), category, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{
			"id":         d.ID,
			"title":      d.Title,
			"content":    d.Content,
			"category":   d.Category,
			"created_at": d.CreatedAt,
		})
	}
	c.JSON(200, gin.H{"category": category, "documents": out})
}

// Search handles GET /knowledge/search?q=...&limit=N.
func (h *KnowledgeHandler) Search(c *gin.Context) {
	const op = "KnowledgeHandler.Search"

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "q is required", nil))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "3"))

	passages, err := h.knowledge.Search(c.Request.Context(), q, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(200, gin.H{"query": q, "results": passages})
}
