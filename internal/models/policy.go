package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type PolicyDocument struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title     string          `gorm:"column:title;type:text" json:"title"`
	Content   string          `gorm:"column:content;type:text" json:"content"`
	Category  string          `gorm:"column:category;type:text;index" json:"category"` // "returns" | "shipping" | "warranty" | "payment" | ...
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (PolicyDocument) TableName() string { return "policy_documents" }
