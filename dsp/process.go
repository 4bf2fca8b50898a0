package dsp

import "math"

// Processed is the finished buffer handed to the transcription engine.
type Processed struct {
	Samples        []int16
	SamplesRemoved int
}

// RemoveSpans copies the sample ranges outside every span, in order, into a
// fresh contiguous buffer. Retained audio is never resampled or reordered
// here. Spans must be ordered and non-overlapping, as FindSilences emits.
func RemoveSpans(samples []int16, spans []Span) ([]int16, int) {
	if len(spans) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out, 0
	}

	removed := 0
	for _, s := range spans {
		removed += s.Len()
	}

	out := make([]int16, 0, len(samples)-removed)
	pos := 0
	for _, s := range spans {
		out = append(out, samples[pos:s.Start]...)
		pos = s.End
	}
	out = append(out, samples[pos:]...)
	return out, removed
}

// Resample retimes the buffer by factor via linear interpolation: factor 2.0
// halves the duration. The signal itself is stretched so the sample-rate
// metadata reported downstream stays unchanged. Factor 1.0 returns a
// sample-identical copy.
func Resample(samples []int16, factor float64) []int16 {
	if factor == 1.0 || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	outLen := int(float64(len(samples)) / factor)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]int16, outLen)
	for i := range out {
		srcPos := float64(i) * factor
		idx := int(srcPos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := srcPos - float64(idx)
		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(math.Round(a + (b-a)*frac))
	}
	return out
}

// Process runs the full post-capture pipeline: silence removal, then speed
// adjustment. An all-silent buffer comes back empty; the caller takes the
// no-audio path and skips the engine entirely.
func Process(samples []int16, spans []Span, speedFactor float64) Processed {
	trimmed, removed := RemoveSpans(samples, spans)
	if len(trimmed) == 0 {
		return Processed{SamplesRemoved: removed}
	}
	return Processed{
		Samples:        Resample(trimmed, speedFactor),
		SamplesRemoved: removed,
	}
}
