package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrConnClosed marks a delivery failure caused by the client going away, as
// opposed to a transport fault on a live connection. Sinks wrap close errors
// with it so the dispatcher can log the two cases distinctly.
var ErrConnClosed = errors.New("connection closed")

// ArchiveRecord is the durable trace of one dispatched utterance.
type ArchiveRecord struct {
	SessionID  string
	Transcript string
	Reply      string
	Audio      []byte
	Format     string
	Reason     string
	StartedAt  time.Time
	EndedAt    time.Time
}

// Archiver persists dispatched utterances. Archival is best effort and runs
// off the dispatch path; a failed archive never affects the session.
type Archiver interface {
	Archive(ctx context.Context, rec *ArchiveRecord) error
}

// Dispatcher delivers finished responses to the session sink and hands them
// to the archiver. Transport failures are counted and logged, never
// propagated: a dropped connection is the client's problem, not the run's.
type Dispatcher struct {
	archiver       Archiver
	stats          *Stats
	archiveTimeout time.Duration
	log            *logrus.Logger
}

func NewDispatcher(archiver Archiver, stats *Stats, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		archiver:       archiver,
		stats:          stats,
		archiveTimeout: 10 * time.Second,
		log:            log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, utt *Utterance, res *Response) {
	if err := sess.sink.EmitTranscript(ctx, res.Transcript, true); err != nil {
		d.stats.TransportErrors.Add(1)
		d.logTransport(sess, err, "final transcript delivery failed")
	}

	if res.Text != "" {
		if err := sess.sink.Emit(ctx, res); err != nil {
			d.stats.TransportErrors.Add(1)
			d.logTransport(sess, err, "response delivery failed")
		} else {
			d.stats.Dispatched.Add(1)
			sess.log.WithFields(logrus.Fields{
				"transcript_len": len(res.Transcript),
				"reply_len":      len(res.Text),
				"audio_bytes":    len(res.Audio),
			}).Info("response dispatched")
		}
	}

	if d.archiver != nil {
		rec := &ArchiveRecord{
			SessionID:  sess.ID,
			Transcript: res.Transcript,
			Reply:      res.Text,
			Audio:      utt.Bytes,
			Format:     res.Format,
			Reason:     string(utt.Reason),
			StartedAt:  utt.StartedAt,
			EndedAt:    utt.EndedAt,
		}
		// detached from the request context so a closed connection cannot
		// cancel persistence mid-write
		go func() {
			actx, cancel := context.WithTimeout(context.Background(), d.archiveTimeout)
			defer cancel()
			if err := d.archiver.Archive(actx, rec); err != nil {
				d.log.WithError(err).WithField("session_id", rec.SessionID).Warn("utterance archive failed")
			}
		}()
	}
}

// logTransport separates client-gone from live-connection faults: the former
// is normal churn, the latter worth a warning.
func (d *Dispatcher) logTransport(sess *Session, err error, msg string) {
	if errors.Is(err, ErrConnClosed) {
		sess.log.WithError(err).Info(msg)
		return
	}
	sess.log.WithError(err).Warn(msg)
}
