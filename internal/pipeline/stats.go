package pipeline

import "sync/atomic"

// Stats collects orchestrator counters, exposed on /stats.
type Stats struct {
	TotalChunks      atomic.Uint64
	BufferTrims      atomic.Uint64
	SilenceTriggers  atomic.Uint64
	CeilingTriggers  atomic.Uint64
	BusyDrops        atomic.Uint64
	Runs             atomic.Uint64
	Timeouts         atomic.Uint64
	AdapterErrors    atomic.Uint64
	EmptyTranscripts atomic.Uint64
	DedupSuppressed  atomic.Uint64
	StaleDiscards    atomic.Uint64
	Dispatched       atomic.Uint64
	TransportErrors  atomic.Uint64
}

func (s *Stats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"total_chunks":      s.TotalChunks.Load(),
		"buffer_trims":      s.BufferTrims.Load(),
		"silence_triggers":  s.SilenceTriggers.Load(),
		"ceiling_triggers":  s.CeilingTriggers.Load(),
		"busy_drops":        s.BusyDrops.Load(),
		"runs":              s.Runs.Load(),
		"timeouts":          s.Timeouts.Load(),
		"adapter_errors":    s.AdapterErrors.Load(),
		"empty_transcripts": s.EmptyTranscripts.Load(),
		"dedup_suppressed":  s.DedupSuppressed.Load(),
		"stale_discards":    s.StaleDiscards.Load(),
		"dispatched":        s.Dispatched.Load(),
		"transport_errors":  s.TransportErrors.Load(),
	}
}
