package dsp

import (
	"math"
	"testing"
	"time"
)

const testRate = 16000

func silence(dur time.Duration) []int16 {
	return make([]int16, int(dur*testRate/time.Second))
}

func tone(dur time.Duration) []int16 {
	n := int(dur * testRate / time.Second)
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/testRate))
	}
	return out
}

func TestRMS(t *testing.T) {
	if got := RMS(silence(100 * time.Millisecond)); got != 0 {
		t.Errorf("RMS of silence = %f, want 0", got)
	}
	if got := RMS(tone(100 * time.Millisecond)); got < 0.1 {
		t.Errorf("RMS of tone = %f, want > 0.1", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS of empty = %f, want 0", got)
	}
}

func TestStreamingSilenceCounter(t *testing.T) {
	d := NewDetector(0.01, testRate)

	d.Feed(silence(2 * time.Second))
	if got := d.SilentFor(); got < 1900*time.Millisecond {
		t.Errorf("SilentFor = %v, want ~2s", got)
	}

	// Any loud frame resets the run.
	d.Feed(tone(50 * time.Millisecond))
	if got := d.SilentFor(); got != 0 {
		t.Errorf("SilentFor after speech = %v, want 0", got)
	}

	d.Feed(silence(500 * time.Millisecond))
	if got := d.SilentFor(); got < 400*time.Millisecond {
		t.Errorf("SilentFor = %v, want ~500ms", got)
	}
}

func TestFeedDegenerateSampleRate(t *testing.T) {
	// A rate below one window's worth of samples must not stall Feed.
	for _, rate := range []int{0, -1, 50} {
		d := NewDetector(0.01, rate)

		done := make(chan struct{})
		go func() {
			d.Feed([]int16{1, 2, 3})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("Feed hung with sampleRate=%d", rate)
		}
		if got := d.SilentFor(); got != 0 {
			t.Errorf("SilentFor with sampleRate=%d = %v, want 0", rate, got)
		}
	}
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector(0.01, testRate)
	d.Feed(silence(3 * time.Second))
	d.Reset()
	if got := d.SilentFor(); got != 0 {
		t.Errorf("SilentFor after Reset = %v, want 0", got)
	}
}

func TestFindSilencesBasic(t *testing.T) {
	d := NewDetector(0.01, testRate)

	buf := append(tone(time.Second), silence(2*time.Second)...)
	buf = append(buf, tone(time.Second)...)

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	wantLen := 2 * testRate
	if got := spans[0].Len(); got < wantLen-testRate/10 || got > wantLen+testRate/10 {
		t.Errorf("span length = %d samples, want ~%d", got, wantLen)
	}
}

func TestFindSilencesKeepsShortPauses(t *testing.T) {
	d := NewDetector(0.01, testRate)

	// A 100ms natural pause mid-word stays below the 300ms floor.
	buf := append(tone(time.Second), silence(100*time.Millisecond)...)
	buf = append(buf, tone(time.Second)...)

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	if len(spans) != 0 {
		t.Errorf("got %d spans, want 0 (short pause kept)", len(spans))
	}
}

func TestFindSilencesMergesAcrossBlips(t *testing.T) {
	d := NewDetector(0.01, testRate)

	// Two long silences separated by a 50ms blip merge into one span.
	buf := append(tone(time.Second), silence(time.Second)...)
	buf = append(buf, tone(50*time.Millisecond)...)
	buf = append(buf, silence(time.Second)...)
	buf = append(buf, tone(time.Second)...)

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1 merged span", len(spans))
	}
}

func TestFindSilencesOrderedNonOverlapping(t *testing.T) {
	d := NewDetector(0.01, testRate)

	var buf []int16
	for i := 0; i < 4; i++ {
		buf = append(buf, tone(time.Second)...)
		buf = append(buf, silence(time.Second)...)
	}

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			t.Fatalf("spans overlap or out of order: %v then %v", spans[i-1], spans[i])
		}
	}
}

func TestTrimmingIsIdempotent(t *testing.T) {
	d := NewDetector(0.01, testRate)

	buf := append(tone(time.Second), silence(2*time.Second)...)
	buf = append(buf, tone(500*time.Millisecond)...)
	buf = append(buf, silence(time.Second)...)

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	trimmed, _ := RemoveSpans(buf, spans)

	again := d.FindSilences(trimmed, 300*time.Millisecond, 150*time.Millisecond)
	if len(again) != 0 {
		t.Errorf("second pass found %d spans on trimmed output, want 0", len(again))
	}
}

func TestFindSilencesAllSilent(t *testing.T) {
	d := NewDetector(0.01, testRate)

	buf := silence(2 * time.Second)
	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Start != 0 || spans[0].End != len(buf) {
		t.Errorf("span = %v, want full buffer [0,%d)", spans[0], len(buf))
	}
}
