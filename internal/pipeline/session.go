package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/audio"
	"github.com/voxdesk/voxdesk/internal/logger"
	"github.com/voxdesk/voxdesk/internal/vad"
)

// Response is the finished (text, audio) pair for one accepted utterance.
// Handed to the session's sink and then discarded.
type Response struct {
	Transcript string
	Text       string
	Audio      []byte
	Format     string
}

// Sink is the session's outbound channel. Emit is called exactly once per
// accepted utterance; delivery failures are non-fatal to the session.
type Sink interface {
	Emit(ctx context.Context, res *Response) error
	EmitTranscript(ctx context.Context, text string, final bool) error
}

// Session holds all per-connection orchestrator state. Owned by the
// connection handler; every field below the mutex is guarded by it. The only
// cross-session state in the system is the shared synthesis cache.
type Session struct {
	ID   string
	sink Sink
	log  *logrus.Entry

	mu    sync.Mutex
	state State
	buf   *audio.Buffer
	vad   vad.Engine

	// inFlight is the single-flight flag: true for the entire duration of
	// one pipeline run and false otherwise. Checked-and-set atomically
	// under mu, never read-then-write.
	inFlight bool

	// epoch increments on every slot acquire and every forced reset.
	// A run's result is dispatched only if the session epoch still matches
	// the one captured at acquire, which discards abandoned runs.
	epoch uint64

	// dedup bookkeeping, updated only together with a dispatch decision
	lastTranscript  string
	lastProcessedAt time.Time
	lastFingerprint string
	lastSnapshotAt  time.Time

	lastPartial string
	totalChunks uint64
}

func NewSession(buf *audio.Buffer, v vad.Engine, sink Sink, log *logrus.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:    id,
		sink:  sink,
		log:   logger.ForSession(log, id),
		state: StateIdle,
		buf:   buf,
		vad:   v,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InFlight reports whether a pipeline run is active.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// TotalChunks is the number of audio chunks ingested over the session's
// lifetime, across all utterances.
func (s *Session) TotalChunks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalChunks
}

// setState applies ev and logs the transition. Caller holds mu.
func (s *Session) setState(ev Event) {
	next := Next(s.state, ev)
	if next != s.state {
		s.log.WithFields(logrus.Fields{"from": s.state, "to": next, "event": ev}).Debug("state transition")
		s.state = next
	}
}

// Reset returns the session to idle and clears everything: buffer, single-
// flight flag, dedup bookkeeping, VAD state. The epoch bump invalidates any
// run still in flight.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Clear()
	s.vad.Reset()
	s.inFlight = false
	s.epoch++
	s.lastTranscript = ""
	s.lastProcessedAt = time.Time{}
	s.lastFingerprint = ""
	s.lastSnapshotAt = time.Time{}
	s.lastPartial = ""
	s.setState(EventReset)
}
