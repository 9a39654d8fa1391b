package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/voxdesk/voxdesk/internal/answer"
	"github.com/voxdesk/voxdesk/internal/models"
	"github.com/voxdesk/voxdesk/internal/providers/embed"
	pgrepo "github.com/voxdesk/voxdesk/internal/repositories/postgres"
	"github.com/voxdesk/voxdesk/internal/utils"
)

// KnowledgeService manages the policy knowledge base. Search satisfies the
// answering layer's retriever contract.
type KnowledgeService interface {
	Ingest(ctx context.Context, title, content, category string, metadataJSON []byte) (*models.PolicyDocument, error)
	Search(ctx context.Context, query string, limit int) ([]answer.Passage, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]models.PolicyDocument, error)
	Count(ctx context.Context) (int64, error)
}

type knowledgeService struct {
	docs     pgrepo.PolicyRepo
	embedder embed.Provider
}

func NewKnowledgeService(docs pgrepo.PolicyRepo, embedder embed.Provider) KnowledgeService {
	return &knowledgeService{docs: docs, embedder: embedder}
}

func (s *knowledgeService) Ingest(ctx context.Context, title, content, category string, metadataJSON []byte) (*models.PolicyDocument, error) {
	const op = "KnowledgeService.Ingest"

	if title == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and content are required", nil)
	}

	vec, err := s.embedder.Embed(ctx, title+"\n"+content)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed document", err)
	}

	doc := &models.PolicyDocument{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Category:  category,
		Embedding: pgvector.NewVector(vec),
		Metadata:  datatypes.JSON(metadataJSON),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.docs.Insert(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert policy document", err)
	}
	return doc, nil
}

func (s *knowledgeService) Search(ctx context.Context, query string, limit int) ([]answer.Passage, error) {
	const op = "KnowledgeService.Search"

	if query == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "query is required", nil)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed query", err)
	}

	rows, err := s.docs.SearchByEmbedding(ctx, vec, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "similarity search failed", err)
	}

	out := make([]answer.Passage, 0, len(rows))
	for _, r := range rows {
		out = append(out, answer.Passage{
			Title:    r.Title,
			Content:  r.Content,
			Distance: r.Distance,
		})
	}
	return out, nil
}

func (s *knowledgeService) ListByCategory(ctx context.Context, category string, limit int) ([]models.PolicyDocument, error) {
	const op = "KnowledgeService.ListByCategory"

	if category == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "category is required", nil)
	}
	rows, err := s.docs.ListByCategory(ctx, category, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}
	return rows, nil
}

func (s *knowledgeService) Count(ctx context.Context) (int64, error) {
	return s.docs.Count(ctx)
}
