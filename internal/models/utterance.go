package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UtteranceLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`

	Transcript string `bson:"transcript" json:"transcript"`
	Reply      string `bson:"reply,omitempty" json:"reply,omitempty"`

	AudioURL    *string `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	AudioFormat string  `bson:"audio_format,omitempty" json:"audio_format,omitempty"`

	TriggerReason string `bson:"trigger_reason" json:"trigger_reason"` // silence|ceiling
	DurationMS    int64  `bson:"duration_ms" json:"duration_ms"`

	StartedAt time.Time `bson:"started_at" json:"started_at"`
	EndedAt   time.Time `bson:"ended_at" json:"ended_at"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
