package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/voxdesk/voxdesk/internal/answer"
	"github.com/voxdesk/voxdesk/internal/providers/stt"
	"github.com/voxdesk/voxdesk/internal/providers/tts"
	"github.com/voxdesk/voxdesk/internal/segment"
	"github.com/voxdesk/voxdesk/internal/utils"
)

// Utterance is a frozen snapshot of the buffer at segmentation time.
// Created once at slot acquire, consumed by one pipeline run, never mutated.
type Utterance struct {
	Bytes       []byte
	Fingerprint string
	StartedAt   time.Time
	EndedAt     time.Time
	Reason      segment.Reason
}

// Capabilities are the three external enrichment stages.
type Capabilities struct {
	STT      stt.Provider
	Answerer answer.Provider
	TTS      tts.Provider
}

// Strategy runs the enrichment pipeline for one utterance. The dependency
// chain transcribe -> answer -> synthesize is fixed; strategies differ only
// in what they overlap around it.
type Strategy interface {
	Name() string
	Run(ctx context.Context, utt *Utterance) (*Response, error)
}

// NewStrategy selects the execution strategy once at construction; there is
// no runtime toggle.
func NewStrategy(name string, caps Capabilities, language string, log *logrus.Logger) Strategy {
	if name == "overlapped" {
		log.WithField("strategy", name).Info("pipeline strategy selected")
		return &overlappedStrategy{caps: caps, language: language}
	}
	log.WithField("strategy", "sequential").Info("pipeline strategy selected")
	return &sequentialStrategy{caps: caps, language: language}
}

type sequentialStrategy struct {
	caps     Capabilities
	language string
}

func (s *sequentialStrategy) Name() string { return "sequential" }

func (s *sequentialStrategy) Run(ctx context.Context, utt *Utterance) (*Response, error) {
	const op = "Strategy.Sequential"

	transcript, _, err := s.caps.STT.Transcribe(ctx, utt.Bytes, s.language)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return &Response{}, nil
	}

	reply, _, err := s.caps.Answerer.Answer(ctx, transcript)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "answer generation failed", err)
	}
	if strings.TrimSpace(reply) == "" {
		return &Response{Transcript: transcript}, nil
	}

	audio, format, err := s.caps.TTS.Synthesize(ctx, reply)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "synthesis failed", err)
	}

	return &Response{Transcript: transcript, Text: reply, Audio: audio, Format: format}, nil
}

// overlappedStrategy keeps the transcribe -> answer -> synthesize chain in
// order but overlaps work outside it: while the chain runs, the synthesis
// cache is warmed for the answerer's canned replies, so a redirect or
// fallback reply synthesizes from cache. All side work is joined before the
// strategy returns.
type overlappedStrategy struct {
	caps     Capabilities
	language string
}

func (s *overlappedStrategy) Name() string { return "overlapped" }

func (s *overlappedStrategy) Run(ctx context.Context, utt *Utterance) (*Response, error) {
	const op = "Strategy.Overlapped"

	transcript, _, err := s.caps.STT.Transcribe(ctx, utt.Bytes, s.language)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "transcription failed", err)
	}
	if strings.TrimSpace(transcript) == "" {
		return &Response{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	var res Response
	res.Transcript = transcript

	g.Go(func() error {
		reply, _, err := s.caps.Answerer.Answer(gctx, transcript)
		if err != nil {
			return utils.E(utils.CodeUnavailable, op, "answer generation failed", err)
		}
		if strings.TrimSpace(reply) == "" {
			return nil
		}
		audio, format, err := s.caps.TTS.Synthesize(gctx, reply)
		if err != nil {
			return utils.E(utils.CodeUnavailable, op, "synthesis failed", err)
		}
		res.Text, res.Audio, res.Format = reply, audio, format
		return nil
	})

	warmer, _ := s.caps.TTS.(tts.Warmer)
	canned, _ := s.caps.Answerer.(answer.CannedReplier)
	if warmer != nil && canned != nil {
		g.Go(func() error {
			warmer.Warm(gctx, canned.CannedReplies())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}
