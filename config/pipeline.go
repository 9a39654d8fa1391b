package config

import (
	"os"
	"strconv"
	"time"

	"github.com/voxdesk/voxdesk/internal/audio"
)

// PipelineSettings are the orchestrator knobs, read once at startup.
type PipelineSettings struct {
	MaxBufferBytes int
	RetentionBytes int

	MinUtterance time.Duration
	MaxUtterance time.Duration

	VADThreshold float64
	VADTail      time.Duration

	ProcessingTimeout time.Duration
	DedupCooldown     time.Duration
	DedupSimilarity   float64

	Strategy       string // "sequential" | "overlapped"
	Language       string
	EnablePartials bool

	TTSCacheSize     int
	TTSCacheTTL      time.Duration
	MaxDistance      float64
	ArchiveRetention time.Duration
}

func Pipeline() PipelineSettings {
	return PipelineSettings{
		MaxBufferBytes: audio.BytesForDuration(envDurationSec("MAX_BUFFER_SECONDS", 8)),
		RetentionBytes: audio.BytesForDuration(envDurationSec("RETENTION_SECONDS", 5)),

		MinUtterance: envDurationMS("MIN_UTTERANCE_MS", 300),
		MaxUtterance: envDurationSec("MAX_UTTERANCE_SECONDS", 5),

		VADThreshold: envFloat("VAD_THRESHOLD", 0.02),
		VADTail:      envDurationMS("VAD_TAIL_MS", 700),

		ProcessingTimeout: envDurationMS("PROCESSING_TIMEOUT_MS", 15000),
		DedupCooldown:     envDurationMS("DEDUP_COOLDOWN_MS", 2000),
		DedupSimilarity:   envFloat("DEDUP_SIMILARITY", 0.9),

		Strategy:       envString("PIPELINE_STRATEGY", "sequential"),
		Language:       envString("STT_LANGUAGE", "en-US"),
		EnablePartials: envBool("ENABLE_PARTIAL_TRANSCRIPTS", false),

		TTSCacheSize:     envInt("TTS_CACHE_SIZE", 100),
		TTSCacheTTL:      envDurationSec("TTS_CACHE_TTL_SECONDS", 24*3600),
		MaxDistance:      envFloat("RAG_MAX_DISTANCE", 2.0),
		ArchiveRetention: envDurationSec("ARCHIVE_TTL_SECONDS", 7*24*3600),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationMS(key string, defMS int) time.Duration {
	return time.Duration(envInt(key, defMS)) * time.Millisecond
}

func envDurationSec(key string, defSec int) time.Duration {
	return time.Duration(envInt(key, defSec)) * time.Second
}
