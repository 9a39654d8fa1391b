package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/voxdesk/voxdesk/config"
	"github.com/voxdesk/voxdesk/internal/answer"
	"github.com/voxdesk/voxdesk/internal/api/handlers"
	"github.com/voxdesk/voxdesk/internal/api/middleware"
	"github.com/voxdesk/voxdesk/internal/api/routes"
	"github.com/voxdesk/voxdesk/internal/cache"
	"github.com/voxdesk/voxdesk/internal/logger"
	"github.com/voxdesk/voxdesk/internal/pipeline"
	"github.com/voxdesk/voxdesk/internal/providers/embed"
	"github.com/voxdesk/voxdesk/internal/providers/llm"
	"github.com/voxdesk/voxdesk/internal/providers/stt"
	"github.com/voxdesk/voxdesk/internal/providers/tts"
	mongorepo "github.com/voxdesk/voxdesk/internal/repositories/mongo"
	pgrepo "github.com/voxdesk/voxdesk/internal/repositories/postgres"
	"github.com/voxdesk/voxdesk/internal/segment"
	"github.com/voxdesk/voxdesk/internal/services"
	"github.com/voxdesk/voxdesk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	log.Info("MongoDB connected")

	settings := config.Pipeline()

	// capability providers
	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech client init error: %v", err)
	}
	defer sttProvider.Close()

	project := os.Getenv("GOOGLE_CLOUD_PROJECT")
	location := os.Getenv("VERTEX_LOCATION")
	if location == "" {
		location = "us-central1"
	}

	llmProvider, err := llm.NewVertexGemini(ctx, project, location, os.Getenv("VERTEX_MODEL"))
	if err != nil {
		log.Fatalf("Vertex LLM init error: %v", err)
	}
	defer llmProvider.Close()

	embedder, err := embed.NewVertex(ctx, project, location, os.Getenv("EMBED_MODEL"))
	if err != nil {
		log.Fatalf("Vertex embedding init error: %v", err)
	}
	defer embedder.Close()

	// synthesis: fallback chain behind the shared cache
	chain := tts.NewChain(log)
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		chain.Add("elevenlabs", tts.NewElevenLabs(key, os.Getenv("ELEVENLABS_VOICE_ID")))
	}
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		chain.Add("deepgram", tts.NewDeepgram(key, os.Getenv("DEEPGRAM_TTS_MODEL")))
	}
	chain.Add("placeholder", tts.NewPlaceholder())

	var store cache.Audio
	if os.Getenv("TTS_CACHE_BACKEND") == "memory" {
		store = cache.NewMemory(settings.TTSCacheSize)
	} else {
		store = cache.NewRedis(config.RedisClient)
	}
	synth := tts.NewCached(chain, store, settings.TTSCacheTTL, log)

	// knowledge + answering
	knowledge := services.NewKnowledgeService(pgrepo.NewPolicyRepo(config.PostgresDB), embedder)
	answerer := answer.NewPolicyAnswerer(knowledge, llmProvider, settings.MaxDistance, log)

	// archive
	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcsUploader, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer gcsUploader.Close()
		uploader = gcsUploader
	} else {
		log.Warn("GCS_BUCKET not set, utterance audio upload disabled")
	}
	archive := services.NewArchiveService(
		mongorepo.NewUtteranceRepo(config.MongoDatabase()),
		uploader,
		settings.ArchiveRetention,
		log,
	)

	// orchestrator
	stats := &pipeline.Stats{}
	dispatcher := pipeline.NewDispatcher(archive, stats, log)
	strategy := pipeline.NewStrategy(settings.Strategy, pipeline.Capabilities{
		STT:      sttProvider,
		Answerer: answerer,
		TTS:      synth,
	}, settings.Language, log)
	coordinator := pipeline.NewCoordinator(
		strategy,
		segment.New(segment.Config{MinUtterance: settings.MinUtterance, MaxUtterance: settings.MaxUtterance}),
		pipeline.NewDeduplicator(settings.DedupCooldown, settings.DedupSimilarity),
		sttProvider,
		dispatcher,
		stats,
		pipeline.Config{
			ProcessingTimeout: settings.ProcessingTimeout,
			Language:          settings.Language,
			EnablePartials:    settings.EnablePartials,
		},
		log,
	)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Assist:    handlers.NewAssistHandler(synth, stats),
		Knowledge: handlers.NewKnowledgeHandler(knowledge),
		Session:   handlers.NewSessionHandler(archive),
		WS: handlers.NewWSHandler(coordinator, handlers.WSOptions{
			MaxBufferBytes: settings.MaxBufferBytes,
			RetentionBytes: settings.RetentionBytes,
			VADThreshold:   settings.VADThreshold,
			VADTail:        settings.VADTail,
		}, log),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
