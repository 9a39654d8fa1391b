package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/models"
	"github.com/voxdesk/voxdesk/internal/pipeline"
	mongorepo "github.com/voxdesk/voxdesk/internal/repositories/mongo"
	"github.com/voxdesk/voxdesk/internal/storage"
	"github.com/voxdesk/voxdesk/internal/utils"
)

// ArchiveService persists dispatched utterances: the record goes to Mongo
// with a TTL, the raw audio to object storage when an uploader is configured.
// Best effort both ways; the dispatcher already runs it off the hot path.
type ArchiveService interface {
	Archive(ctx context.Context, rec *pipeline.ArchiveRecord) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.UtteranceLog, error)
}

type archiveService struct {
	utterances mongorepo.UtteranceRepository
	uploader   storage.Uploader // nil disables audio upload
	retention  time.Duration
	log        *logrus.Logger
}

func NewArchiveService(utterances mongorepo.UtteranceRepository, uploader storage.Uploader, retention time.Duration, log *logrus.Logger) ArchiveService {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &archiveService{
		utterances: utterances,
		uploader:   uploader,
		retention:  retention,
		log:        log,
	}
}

func (s *archiveService) Archive(ctx context.Context, rec *pipeline.ArchiveRecord) error {
	const op = "ArchiveService.Archive"

	if rec == nil || rec.SessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "record with session_id is required", nil)
	}

	var audioURL *string
	if s.uploader != nil && len(rec.Audio) > 0 {
		object := fmt.Sprintf("utterances/%s/%d.pcm", rec.SessionID, rec.EndedAt.UnixMilli())
		url, err := s.uploader.Upload(ctx, object, "audio/L16; rate=16000", bytes.NewReader(rec.Audio))
		if err != nil {
			s.log.WithError(err).WithField("session_id", rec.SessionID).Warn("utterance audio upload failed")
		} else {
			audioURL = &url
		}
	}

	now := time.Now().UTC()
	row := &models.UtteranceLog{
		SessionID:     rec.SessionID,
		Transcript:    rec.Transcript,
		Reply:         rec.Reply,
		AudioURL:      audioURL,
		AudioFormat:   rec.Format,
		TriggerReason: rec.Reason,
		DurationMS:    rec.EndedAt.Sub(rec.StartedAt).Milliseconds(),
		StartedAt:     rec.StartedAt,
		EndedAt:       rec.EndedAt,
		Timestamp:     now,
		ExpiresAt:     now.Add(s.retention),
	}

	if err := s.utterances.Insert(ctx, row); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert utterance log", err)
	}
	return nil
}

func (s *archiveService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.UtteranceLog, error) {
	const op = "ArchiveService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	rows, err := s.utterances.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list utterances", err)
	}
	return rows, nil
}
