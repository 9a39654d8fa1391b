package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/providers/stt"
	"github.com/voxdesk/voxdesk/internal/segment"
)

// Config holds the coordinator's runtime knobs.
type Config struct {
	// ProcessingTimeout bounds one full pipeline run. A run that exceeds it
	// is abandoned and its late result discarded.
	ProcessingTimeout time.Duration
	Language          string
	// EnablePartials streams provisional transcripts while the buffer fills,
	// when the STT provider supports incremental feeding.
	EnablePartials bool
}

// Coordinator drives the utterance lifecycle for every session: ingest,
// segment, single-flight pipeline runs, dedup, dispatch. It owns no
// per-session state; everything mutable lives in the Session and is guarded
// by the session mutex.
type Coordinator struct {
	strategy Strategy
	seg      *segment.Segmenter
	dedup    *Deduplicator
	stt      stt.Provider
	disp     *Dispatcher
	stats    *Stats
	cfg      Config
	log      *logrus.Logger

	wg sync.WaitGroup
}

func NewCoordinator(strategy Strategy, seg *segment.Segmenter, dedup *Deduplicator, sttProvider stt.Provider, disp *Dispatcher, stats *Stats, cfg Config, log *logrus.Logger) *Coordinator {
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = 15 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &Coordinator{
		strategy: strategy,
		seg:      seg,
		dedup:    dedup,
		stt:      sttProvider,
		disp:     disp,
		stats:    stats,
		cfg:      cfg,
		log:      log,
	}
}

// Feed ingests one audio chunk. This is the hot path: it appends, scores,
// and decides, but never waits on a pipeline run. ctx must be
// connection-scoped, not per-message, because an accepted trigger starts a
// run that outlives this call.
func (c *Coordinator) Feed(ctx context.Context, sess *Session, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c.stats.TotalChunks.Add(1)

	sess.mu.Lock()
	sess.setState(EventChunk)
	sess.totalChunks++
	if sess.buf.Append(chunk) {
		c.stats.BufferTrims.Add(1)
		sess.log.WithField("buffered_ms", sess.buf.BufferedDuration().Milliseconds()).Debug("buffer trimmed to retention window")
	}
	sig := sess.vad.Score(chunk)
	dec := c.seg.Evaluate(sig, sess.buf.BufferedDuration())

	if !dec.Trigger {
		busy := sess.inFlight
		sess.mu.Unlock()
		if c.cfg.EnablePartials && sig.Speech && !busy {
			c.feedPartial(ctx, sess, chunk)
		}
		return
	}

	if sess.inFlight {
		// Single-flight: triggers during a run are dropped, not queued.
		// The buffer was cleared when the running utterance was snapshotted,
		// so whatever fired this trigger is new audio the user can repeat.
		// Consuming the VAD latch here keeps one silence tail from firing a
		// drop on every following chunk.
		c.stats.BusyDrops.Add(1)
		sess.log.WithField("reason", dec.Reason).Debug("trigger dropped, pipeline busy")
		sess.vad.MarkConsumed()
		sess.mu.Unlock()
		return
	}

	startedAt := sess.buf.StartedAt()
	bytes := sess.buf.SnapshotAndClear()
	fp := Fingerprint(bytes)
	now := time.Now().UTC()

	// Same bytes re-triggering inside the cooldown is a replay, not speech.
	if fp == sess.lastFingerprint && now.Sub(sess.lastSnapshotAt) < c.dedup.Cooldown {
		c.stats.DedupSuppressed.Add(1)
		sess.log.WithField("fingerprint", fp).Debug("identical audio suppressed")
		sess.vad.Reset()
		sess.setState(EventReset)
		sess.mu.Unlock()
		return
	}
	sess.lastFingerprint = fp
	sess.lastSnapshotAt = now

	sess.inFlight = true
	sess.epoch++
	epoch := sess.epoch
	sess.setState(EventTrigger)
	sess.vad.Reset()
	sess.lastPartial = ""
	sess.mu.Unlock()

	switch dec.Reason {
	case segment.ReasonSilence:
		c.stats.SilenceTriggers.Add(1)
	case segment.ReasonCeiling:
		c.stats.CeilingTriggers.Add(1)
	}

	utt := &Utterance{
		Bytes:       bytes,
		Fingerprint: fp,
		StartedAt:   startedAt,
		EndedAt:     now,
		Reason:      dec.Reason,
	}

	c.wg.Add(1)
	go c.run(ctx, sess, utt, epoch)
}

// Wait blocks until every in-flight run has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, sess *Session, utt *Utterance, epoch uint64) {
	defer c.wg.Done()
	c.stats.Runs.Add(1)

	rctx, cancel := context.WithTimeout(ctx, c.cfg.ProcessingTimeout)
	defer cancel()

	type outcome struct {
		res *Response
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.strategy.Run(rctx, utt)
		done <- outcome{res, err}
	}()

	select {
	case <-rctx.Done():
		c.abandon(sess, utt, epoch, rctx.Err())
		// Drain the strategy goroutine so a provider that ignores ctx
		// cancellation does not leak; its result is logged and discarded.
		go func() {
			out := <-done
			sess.log.WithFields(logrus.Fields{
				"fingerprint": utt.Fingerprint,
				"had_error":   out.err != nil,
			}).Debug("late result after abandoned run discarded")
		}()
	case out := <-done:
		if out.err != nil {
			c.fail(sess, utt, epoch, out.err)
			return
		}
		c.complete(ctx, sess, utt, epoch, out.res)
	}
}

// abandon handles a run cut short before it produced a result: clear the
// flag, bump the epoch so the straggler's result is discarded on arrival,
// and return to idle. A cancelled parent context means the connection is
// going away, which is normal churn, not a timeout.
func (c *Coordinator) abandon(sess *Session, utt *Utterance, epoch uint64, cause error) {
	if errors.Is(cause, context.Canceled) {
		sess.log.WithField("fingerprint", utt.Fingerprint).Info("pipeline run canceled, session closing")
	} else {
		c.stats.Timeouts.Add(1)
		sess.log.WithFields(logrus.Fields{
			"fingerprint": utt.Fingerprint,
			"timeout_ms":  c.cfg.ProcessingTimeout.Milliseconds(),
		}).Warn("pipeline run timed out")
	}

	sess.mu.Lock()
	if sess.epoch == epoch {
		sess.epoch++
		sess.inFlight = false
		sess.setState(EventFail)
		sess.setState(EventReset)
	}
	sess.mu.Unlock()
	c.stt.Reset()
}

func (c *Coordinator) fail(sess *Session, utt *Utterance, epoch uint64, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.abandon(sess, utt, epoch, err)
		return
	}
	c.stats.AdapterErrors.Add(1)
	sess.log.WithError(err).WithField("fingerprint", utt.Fingerprint).Error("pipeline run failed")

	sess.mu.Lock()
	if sess.epoch == epoch {
		sess.inFlight = false
		sess.setState(EventFail)
		sess.setState(EventReset)
	}
	sess.mu.Unlock()
	c.stt.Reset()
}

func (c *Coordinator) complete(ctx context.Context, sess *Session, utt *Utterance, epoch uint64, res *Response) {
	defer c.stt.Reset()

	sess.mu.Lock()
	if sess.epoch != epoch {
		c.stats.StaleDiscards.Add(1)
		sess.log.WithField("fingerprint", utt.Fingerprint).Debug("stale result discarded")
		sess.mu.Unlock()
		return
	}

	if res.Transcript == "" {
		c.stats.EmptyTranscripts.Add(1)
		sess.log.Debug("no speech recognized")
		c.finishLocked(sess)
		sess.mu.Unlock()
		return
	}

	if c.dedup.IsDuplicate(res.Transcript, sess.lastTranscript, sess.lastProcessedAt) {
		c.stats.DedupSuppressed.Add(1)
		sess.log.WithField("transcript", res.Transcript).Debug("duplicate transcript suppressed")
		c.finishLocked(sess)
		sess.mu.Unlock()
		return
	}

	// The dedup bookkeeping and the dispatch decision commit together,
	// under the same lock hold.
	sess.lastTranscript = res.Transcript
	sess.lastProcessedAt = time.Now().UTC()
	sess.setState(EventComplete)
	sess.mu.Unlock()

	c.disp.Dispatch(ctx, sess, utt, res)

	sess.mu.Lock()
	if sess.epoch == epoch {
		// audio fed during the run belongs to the finished exchange
		sess.buf.Clear()
		sess.inFlight = false
		sess.setState(EventDispatched)
	}
	sess.mu.Unlock()
}

// finishLocked closes out a run that produced nothing to dispatch. Caller
// holds the session mutex.
func (c *Coordinator) finishLocked(sess *Session) {
	sess.buf.Clear()
	sess.inFlight = false
	sess.setState(EventComplete)
	sess.setState(EventDispatched)
}

// feedPartial pushes one chunk to the STT provider's incremental interface
// and emits the provisional transcript when it changed. Best effort: partial
// failures never touch the session lifecycle.
func (c *Coordinator) feedPartial(ctx context.Context, sess *Session, chunk []byte) {
	streamer, ok := c.stt.(stt.Streamer)
	if !ok {
		return
	}
	text, err := streamer.FeedPartial(ctx, chunk)
	if err != nil {
		sess.log.WithError(err).Debug("partial transcription failed")
		return
	}
	if text == "" {
		return
	}

	sess.mu.Lock()
	changed := text != sess.lastPartial
	if changed {
		sess.lastPartial = text
	}
	sess.mu.Unlock()

	if changed {
		if err := sess.sink.EmitTranscript(ctx, text, false); err != nil {
			sess.log.WithError(err).Debug("partial transcript emit failed")
		}
	}
}
