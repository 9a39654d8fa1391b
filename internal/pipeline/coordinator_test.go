package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxdesk/voxdesk/internal/audio"
	"github.com/voxdesk/voxdesk/internal/segment"
	"github.com/voxdesk/voxdesk/internal/vad"
)

type fakeVAD struct {
	sig vad.Signal
}

func (f *fakeVAD) Score(_ []byte) vad.Signal { return f.sig }
func (f *fakeVAD) MarkConsumed()             { f.sig.EndOfUtterance = false }
func (f *fakeVAD) Reset()                    { f.sig.EndOfUtterance = false }

type fakeSink struct {
	mu        sync.Mutex
	responses []*Response
	finals    []string
	partials  []string
	emitErr   error
}

func (f *fakeSink) Emit(_ context.Context, res *Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.responses = append(f.responses, res)
	return nil
}

func (f *fakeSink) EmitTranscript(_ context.Context, text string, final bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	if final {
		f.finals = append(f.finals, text)
	} else {
		f.partials = append(f.partials, text)
	}
	return nil
}

func (f *fakeSink) responseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses)
}

type fakeStrategy struct {
	runs    atomic.Int32
	respFn  func(utt *Utterance) (*Response, error)
	block   chan struct{}
	started chan struct{}
}

func (f *fakeStrategy) Name() string { return "fake" }

func (f *fakeStrategy) Run(_ context.Context, utt *Utterance) (*Response, error) {
	f.runs.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.respFn(utt)
}

type fakeSTT struct {
	resets atomic.Int32
}

func (*fakeSTT) Transcribe(context.Context, []byte, string) (string, float64, error) {
	return "", 0, nil
}
func (f *fakeSTT) Reset()     { f.resets.Add(1) }
func (*fakeSTT) Close() error { return nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCoordinator(strategy Strategy, cfg Config) (*Coordinator, *Session, *fakeSink, *Stats, *fakeVAD) {
	log := quietLogger()
	stats := &Stats{}
	seg := segment.New(segment.Config{MinUtterance: 10 * time.Millisecond, MaxUtterance: 100 * time.Millisecond})
	dedup := NewDeduplicator(2*time.Second, 0.9)
	disp := NewDispatcher(nil, stats, log)
	c := NewCoordinator(strategy, seg, dedup, &fakeSTT{}, disp, stats, cfg, log)

	fv := &fakeVAD{sig: vad.Signal{Speech: true, SpeechProb: 0.8}}
	sink := &fakeSink{}
	sess := NewSession(audio.NewBuffer(0, 0), fv, sink, log)
	return c, sess, sink, stats, fv
}

// chunk builds ms worth of PCM filled with fill, so different fills produce
// different fingerprints.
func chunk(ms int, fill byte) []byte {
	b := make([]byte, audio.BytesForDuration(time.Duration(ms)*time.Millisecond))
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestUtteranceDispatched(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{Transcript: "what is your return policy", Text: "Returns are free within 30 days.", Audio: []byte{1, 2}, Format: "pcm_16000"}, nil
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()

	require.Len(t, sink.responses, 1)
	assert.Equal(t, "Returns are free within 30 days.", sink.responses[0].Text)
	assert.Equal(t, []string{"what is your return policy"}, sink.finals)
	assert.Equal(t, StateIdle, sess.State())
	assert.False(t, sess.InFlight())
	assert.Equal(t, uint64(1), stats.Dispatched.Load())
	assert.Equal(t, uint64(1), stats.CeilingTriggers.Load())
}

func TestSilenceTriggerPreferred(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{Transcript: "hello", Text: "Hi!", Format: "pcm_16000"}, nil
	}}
	c, sess, _, stats, fv := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(50, 0x01))
	fv.sig.EndOfUtterance = true
	c.Feed(context.Background(), sess, chunk(20, 0x02))
	c.Wait()

	assert.Equal(t, uint64(1), stats.SilenceTriggers.Load())
	assert.Equal(t, uint64(0), stats.CeilingTriggers.Load())
}

func TestSingleFlightDropsConcurrentTrigger(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "first", Text: "ok", Format: "pcm_16000"}, nil
		},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	<-strategy.started

	// second boundary while the first run is still active
	c.Feed(context.Background(), sess, chunk(100, 0x02))
	assert.Equal(t, uint64(1), stats.BusyDrops.Load())

	close(strategy.block)
	c.Wait()

	assert.Equal(t, int32(1), strategy.runs.Load())
	assert.Equal(t, 1, sink.responseCount())
	assert.False(t, sess.InFlight())
}

func TestTimeoutRecoversSession(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "slow", Text: "late", Format: "pcm_16000"}, nil
		},
		block: make(chan struct{}),
	}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{ProcessingTimeout: 30 * time.Millisecond})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()

	assert.Equal(t, uint64(1), stats.Timeouts.Load())
	assert.False(t, sess.InFlight())
	assert.Equal(t, StateIdle, sess.State())
	// provider state from the abandoned run must not leak into the next one
	assert.GreaterOrEqual(t, c.stt.(*fakeSTT).resets.Load(), int32(1))

	// the straggler's result surfaces after the timeout and is discarded
	close(strategy.block)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.responseCount())

	// session accepts the next utterance normally
	c.Feed(context.Background(), sess, chunk(100, 0x02))
	c.Wait()
	assert.Equal(t, 1, sink.responseCount())
}

func TestAdapterErrorRecoversSession(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return nil, errors.New("speech api unreachable")
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()

	assert.Equal(t, uint64(1), stats.AdapterErrors.Load())
	assert.Equal(t, 0, sink.responseCount())
	assert.False(t, sess.InFlight())
	assert.Equal(t, StateIdle, sess.State())
}

func TestEmptyTranscriptFinishesQuietly(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{}, nil
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()

	assert.Equal(t, uint64(1), stats.EmptyTranscripts.Load())
	assert.Equal(t, 0, sink.responseCount())
	assert.Empty(t, sink.finals)
	assert.Equal(t, StateIdle, sess.State())
}

func TestDuplicateTranscriptSuppressedWithinCooldown(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{Transcript: "what is your return policy", Text: "Free returns.", Format: "pcm_16000"}, nil
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()
	assert.Equal(t, 1, sink.responseCount())

	// different audio, same transcript, still inside the cooldown
	c.Feed(context.Background(), sess, chunk(100, 0x02))
	c.Wait()
	assert.Equal(t, uint64(1), stats.DedupSuppressed.Load())
	assert.Equal(t, 1, sink.responseCount())
	assert.False(t, sess.InFlight())

	// after the cooldown the same question is answered again
	c.dedup.now = func() time.Time { return time.Now().Add(3 * time.Second) }
	c.Feed(context.Background(), sess, chunk(100, 0x03))
	c.Wait()
	assert.Equal(t, 2, sink.responseCount())
}

func TestIdenticalAudioSuppressedBeforeRun(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{Transcript: "hello there", Text: "Hi!", Format: "pcm_16000"}, nil
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x05))
	c.Wait()
	assert.Equal(t, int32(1), strategy.runs.Load())

	// byte-identical snapshot inside the cooldown never reaches the pipeline
	c.Feed(context.Background(), sess, chunk(100, 0x05))
	c.Wait()
	assert.Equal(t, int32(1), strategy.runs.Load())
	assert.Equal(t, uint64(1), stats.DedupSuppressed.Load())
	assert.Equal(t, 1, sink.responseCount())
}

func TestStaleResultDiscardedAfterReset(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "old question", Text: "old answer", Format: "pcm_16000"}, nil
		},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	<-strategy.started

	sess.Reset()
	close(strategy.block)
	c.Wait()

	assert.Equal(t, uint64(1), stats.StaleDiscards.Load())
	assert.Equal(t, 0, sink.responseCount())
	assert.Empty(t, sink.finals)
	assert.False(t, sess.InFlight())
}

func TestDispatchClearsAudioBufferedDuringRun(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "hi", Text: "hello", Format: "pcm_16000"}, nil
		},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, sess, sink, _, _ := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	<-strategy.started

	// audio keeps arriving while the run is active but stays below a boundary
	c.Feed(context.Background(), sess, chunk(5, 0x02))

	close(strategy.block)
	c.Wait()

	require.Equal(t, 1, sink.responseCount())
	assert.Equal(t, 0, sess.buf.Len())
	assert.False(t, sess.InFlight())
	assert.Equal(t, StateIdle, sess.State())
}

func TestBusyDropConsumesSilenceLatch(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "first", Text: "ok", Format: "pcm_16000"}, nil
		},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, sess, _, stats, fv := newTestCoordinator(strategy, Config{})

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	<-strategy.started

	fv.sig.EndOfUtterance = true
	c.Feed(context.Background(), sess, chunk(20, 0x02))
	assert.Equal(t, uint64(1), stats.BusyDrops.Load())

	// the latch was consumed with the drop, so later chunks of the same
	// silence tail do not fire again
	c.Feed(context.Background(), sess, chunk(20, 0x03))
	assert.Equal(t, uint64(1), stats.BusyDrops.Load())

	close(strategy.block)
	c.Wait()
}

func TestConnectionGoneMidRunIsNotATimeout(t *testing.T) {
	strategy := &fakeStrategy{
		respFn: func(*Utterance) (*Response, error) {
			return &Response{Transcript: "hi", Text: "hello", Format: "pcm_16000"}, nil
		},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	c.Feed(ctx, sess, chunk(100, 0x01))
	<-strategy.started

	cancel()
	c.Wait()

	assert.Equal(t, uint64(0), stats.Timeouts.Load())
	assert.False(t, sess.InFlight())
	assert.Equal(t, StateIdle, sess.State())

	// the straggler's result is still discarded
	close(strategy.block)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sink.responseCount())
}

func TestTransportFailureDoesNotWedgeSession(t *testing.T) {
	strategy := &fakeStrategy{respFn: func(*Utterance) (*Response, error) {
		return &Response{Transcript: "hi", Text: "hello", Format: "pcm_16000"}, nil
	}}
	c, sess, sink, stats, _ := newTestCoordinator(strategy, Config{})
	sink.emitErr = errors.New("connection closed")

	c.Feed(context.Background(), sess, chunk(100, 0x01))
	c.Wait()

	assert.GreaterOrEqual(t, stats.TransportErrors.Load(), uint64(1))
	assert.Equal(t, uint64(0), stats.Dispatched.Load())
	assert.False(t, sess.InFlight())
	assert.Equal(t, StateIdle, sess.State())
}
