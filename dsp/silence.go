package dsp

import (
	"math"
	"time"
)

// Span is a half-open sample range [Start, End) classified as silence.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// windowMs is the classification granularity for both detector roles.
const windowMs = 10

// Detector classifies audio against an RMS amplitude threshold. The same
// primitive backs the streaming auto-stop counter and the batch trimming
// pass, so "why did it stop" and "why was audio removed" always agree.
type Detector struct {
	threshold  float64
	sampleRate int

	// streaming role
	silentSamples int
	pending       []int16
}

func NewDetector(threshold float64, sampleRate int) *Detector {
	return &Detector{threshold: threshold, sampleRate: sampleRate}
}

func (d *Detector) window() int {
	return d.sampleRate * windowMs / 1000
}

// RMS is the shared amplitude primitive, normalized to 0..1.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		normalized := float64(s) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}

// Feed consumes one frame in the streaming role, extending or resetting
// the consecutive-silence counter window by window.
func (d *Detector) Feed(frame []int16) {
	w := d.window()
	if w == 0 {
		return
	}
	d.pending = append(d.pending, frame...)
	for len(d.pending) >= w {
		win := d.pending[:w]
		d.pending = d.pending[w:]
		if RMS(win) < d.threshold {
			d.silentSamples += w
		} else {
			d.silentSamples = 0
		}
	}
}

// SilentFor reports the length of the current trailing silence run.
func (d *Detector) SilentFor() time.Duration {
	if d.sampleRate <= 0 {
		return 0
	}
	return time.Duration(d.silentSamples) * time.Second / time.Duration(d.sampleRate)
}

// Reset clears the streaming counters; called on every session start.
func (d *Detector) Reset() {
	d.silentSamples = 0
	d.pending = d.pending[:0]
}

// FindSilences scans a finished buffer and returns ordered, non-overlapping
// silence spans. Spans separated by less than mergeGap are coalesced first;
// spans still shorter than minSpan are then dropped, so natural short
// pauses survive trimming. Merging before filtering makes the result
// idempotent: re-scanning trimmed output yields nothing.
func (d *Detector) FindSilences(samples []int16, minSpan, mergeGap time.Duration) []Span {
	w := d.window()
	if w == 0 || len(samples) == 0 {
		return nil
	}

	var spans []Span
	runStart := -1
	for pos := 0; pos < len(samples); pos += w {
		end := min(pos+w, len(samples))
		silent := RMS(samples[pos:end]) < d.threshold
		if silent && runStart < 0 {
			runStart = pos
		}
		if !silent && runStart >= 0 {
			spans = append(spans, Span{Start: runStart, End: pos})
			runStart = -1
		}
	}
	if runStart >= 0 {
		spans = append(spans, Span{Start: runStart, End: len(samples)})
	}

	gap := d.samplesFor(mergeGap)
	spans = mergeSpans(spans, gap)

	minLen := d.samplesFor(minSpan)
	filtered := spans[:0]
	for _, s := range spans {
		if s.Len() >= minLen {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (d *Detector) samplesFor(dur time.Duration) int {
	return int(dur * time.Duration(d.sampleRate) / time.Second)
}

func mergeSpans(spans []Span, gap int) []Span {
	if len(spans) < 2 {
		return spans
	}
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start-last.End < gap {
			last.End = s.End
		} else {
			merged = append(merged, s)
		}
	}
	return merged
}
