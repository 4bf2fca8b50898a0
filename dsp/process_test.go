package dsp

import (
	"testing"
	"time"
)

func TestRemoveSpansPreservesOrder(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	spans := []Span{{Start: 2, End: 4}, {Start: 7, End: 9}}

	out, removed := RemoveSpans(samples, spans)
	want := []int16{1, 2, 5, 6, 7, 10}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestRemoveSpansNoSpans(t *testing.T) {
	samples := []int16{1, 2, 3}
	out, removed := RemoveSpans(samples, nil)
	if removed != 0 || len(out) != 3 {
		t.Errorf("got (%v, %d), want untouched copy", out, removed)
	}
	// The copy must be independent of the input.
	out[0] = 99
	if samples[0] == 99 {
		t.Error("RemoveSpans aliased its input")
	}
}

func TestRemoveSpansBounded(t *testing.T) {
	samples := tone(time.Second)
	spans := []Span{{Start: 100, End: 200}, {Start: 5000, End: 5500}}

	out, removed := RemoveSpans(samples, spans)
	total := 0
	for _, s := range spans {
		total += s.Len()
	}
	if removed != total {
		t.Errorf("removed = %d, want %d", removed, total)
	}
	if len(samples)-len(out) != total {
		t.Errorf("duration shrank by %d, want exactly %d", len(samples)-len(out), total)
	}
}

func TestRemoveSpansFullCover(t *testing.T) {
	samples := silence(time.Second)
	out, removed := RemoveSpans(samples, []Span{{Start: 0, End: len(samples)}})
	if len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
	if removed != len(samples) {
		t.Errorf("removed = %d, want %d", removed, len(samples))
	}
}

func TestResampleUnityIsNoop(t *testing.T) {
	in := tone(time.Second)
	out := Resample(in, 1.0)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %d, want %d (must be sample-identical)", i, out[i], in[i])
		}
	}
}

func TestResampleChangesDuration(t *testing.T) {
	in := tone(2 * time.Second)

	fast := Resample(in, 2.0)
	if got, want := len(fast), len(in)/2; got < want-10 || got > want+10 {
		t.Errorf("2x length = %d, want ~%d", got, want)
	}

	slow := Resample(in, 0.5)
	if got, want := len(slow), len(in)*2; got < want-10 || got > want+10 {
		t.Errorf("0.5x length = %d, want ~%d", got, want)
	}
}

func TestProcessEmptyWhenAllSilent(t *testing.T) {
	samples := silence(time.Second)
	p := Process(samples, []Span{{Start: 0, End: len(samples)}}, 1.5)
	if len(p.Samples) != 0 {
		t.Errorf("all-silent buffer produced %d samples, want 0", len(p.Samples))
	}
	if p.SamplesRemoved != len(samples) {
		t.Errorf("SamplesRemoved = %d, want %d", p.SamplesRemoved, len(samples))
	}
}

func TestProcessRetainsVoiced(t *testing.T) {
	d := NewDetector(0.01, testRate)
	buf := append(tone(2*time.Second), silence(11*time.Second)...)

	spans := d.FindSilences(buf, 300*time.Millisecond, 150*time.Millisecond)
	p := Process(buf, spans, 1.0)

	// Only the ~2s voiced portion survives.
	want := 2 * testRate
	if len(p.Samples) < want-testRate/10 || len(p.Samples) > want+testRate/10 {
		t.Errorf("retained %d samples, want ~%d", len(p.Samples), want)
	}
}
