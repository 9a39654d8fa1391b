package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/models"
	"github.com/voxdesk/voxdesk/internal/pipeline"
	"github.com/voxdesk/voxdesk/internal/utils"
)

type fakeUtteranceRepo struct {
	rows      []*models.UtteranceLog
	lastLimit int64
}

func (f *fakeUtteranceRepo) Insert(_ context.Context, u *models.UtteranceLog) error {
	f.rows = append(f.rows, u)
	return nil
}

func (f *fakeUtteranceRepo) ListBySession(_ context.Context, sessionID string, limit int64) ([]models.UtteranceLog, error) {
	f.lastLimit = limit
	var out []models.UtteranceLog
	for _, r := range f.rows {
		if r.SessionID == sessionID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeUploader struct {
	objects []string
}

func (f *fakeUploader) Upload(_ context.Context, objectName, _ string, _ io.Reader) (string, error) {
	f.objects = append(f.objects, objectName)
	return "gs://test-bucket/" + objectName, nil
}

func testArchiveLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestArchiveStoresRecordWithRetention(t *testing.T) {
	repo := &fakeUtteranceRepo{}
	up := &fakeUploader{}
	svc := NewArchiveService(repo, up, time.Hour, testArchiveLogger())

	started := time.Now().UTC().Add(-2 * time.Second)
	ended := started.Add(2 * time.Second)
	err := svc.Archive(context.Background(), &pipeline.ArchiveRecord{
		SessionID:  "sess-1",
		Transcript: "what is your return policy",
		Reply:      "Returns are free within 30 days.",
		Audio:      []byte{1, 2, 3},
		Format:     "pcm_16000",
		Reason:     "silence",
		StartedAt:  started,
		EndedAt:    ended,
	})
	require.NoError(t, err)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, "sess-1", row.SessionID)
	assert.Equal(t, "silence", row.TriggerReason)
	assert.Equal(t, int64(2000), row.DurationMS)
	assert.WithinDuration(t, row.Timestamp.Add(time.Hour), row.ExpiresAt, time.Second)
	require.NotNil(t, row.AudioURL)
	assert.Contains(t, *row.AudioURL, "gs://test-bucket/utterances/sess-1/")
	require.Len(t, up.objects, 1)
}

func TestArchiveRejectsEmptySession(t *testing.T) {
	svc := NewArchiveService(&fakeUtteranceRepo{}, nil, time.Hour, testArchiveLogger())

	err := svc.Archive(context.Background(), &pipeline.ArchiveRecord{})
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestListBySessionReturnsOwnHistoryOnly(t *testing.T) {
	repo := &fakeUtteranceRepo{}
	svc := NewArchiveService(repo, nil, time.Hour, testArchiveLogger())

	for _, id := range []string{"sess-1", "sess-2", "sess-1"} {
		require.NoError(t, svc.Archive(context.Background(), &pipeline.ArchiveRecord{
			SessionID: id,
			EndedAt:   time.Now().UTC(),
		}))
	}

	rows, err := svc.ListBySession(context.Background(), "sess-1", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(10), repo.lastLimit)

	_, err = svc.ListBySession(context.Background(), "", 10)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
