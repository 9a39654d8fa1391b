package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/voxdesk/voxdesk/internal/models"
	"gorm.io/gorm"
)

// PolicyMatch is one similarity-search hit. Distance is the L2 distance
// between the query embedding and the document embedding.
type PolicyMatch struct {
	ID       string  `gorm:"column:id"`
	Title    string  `gorm:"column:title"`
	Content  string  `gorm:"column:content"`
	Category string  `gorm:"column:category"`
	Distance float64 `gorm:"column:distance"`
}

type PolicyRepo interface {
	Insert(ctx context.Context, doc *models.PolicyDocument) error
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]PolicyMatch, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]models.PolicyDocument, error)
	Count(ctx context.Context) (int64, error)
}

type policyRepo struct {
	db *gorm.DB
}

func NewPolicyRepo(db *gorm.DB) PolicyRepo {
	return &policyRepo{db: db}
}

func (r *policyRepo) Insert(ctx context.Context, doc *models.PolicyDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *policyRepo) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]PolicyMatch, error) {
	if limit <= 0 {
		limit = 3
	}
	vec := pgvector.NewVector(embedding)

	var rows []PolicyMatch
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, title, content, category, embedding <-> ? AS distance
		 FROM policy_documents
		 ORDER BY embedding <-> ?
		 LIMIT ?`,
		vec, vec, limit,
	).Scan(&rows).Error
	return rows, err
}

func (r *policyRepo) ListByCategory(ctx context.Context, category string, limit int) ([]models.PolicyDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.PolicyDocument
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *policyRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PolicyDocument{}).Count(&n).Error
	return n, err
}
