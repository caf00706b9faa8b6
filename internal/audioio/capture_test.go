package audioio

import (
	"math"
	"testing"

	"dictation/internal/recording"
)

func TestLinearResampleHalvesRate(t *testing.T) {
	in := make([]float32, 480) // 10 ms @ 48 kHz
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}
	out := linearResample(in, 48000, 16000)
	if len(out) != 160 {
		t.Errorf("48k->16k of 480 samples: want 160, got %d", len(out))
	}
}

func TestLinearResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := linearResample(in, 16000, 16000)
	if len(out) != 3 || out[0] != 0.1 {
		t.Errorf("same-rate resample must be a pass-through, got %v", out)
	}
}

func TestLinearResampleEmpty(t *testing.T) {
	if out := linearResample(nil, 48000, 16000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestLinearResamplePreservesDC(t *testing.T) {
	in := make([]float32, 4800)
	for i := range in {
		in[i] = 0.5
	}
	out := linearResample(in, 48000, 16000)
	for i, s := range out {
		if s != 0.5 {
			t.Fatalf("sample %d: constant signal must stay constant, got %v", i, s)
		}
	}
}

func TestToTargetRatePassThroughAtNativeRate(t *testing.T) {
	c := &Capture{nativeSR: float64(TargetSampleRate)}
	in := []float32{0.1, 0.2}
	if out := c.toTargetRate(in); len(out) != 2 {
		t.Errorf("native-rate capture must pass samples through, got %d", len(out))
	}
}

func TestToTargetRateResamples(t *testing.T) {
	c := &Capture{
		nativeSR: 48000,
		intake:   recording.NewCircularBuffer(resampleIntakeCap),
	}
	out := c.toTargetRate(make([]float32, 480))
	if len(out) != 160 {
		t.Errorf("expected 160 resampled samples, got %d", len(out))
	}
	if c.intake.Len() != 0 {
		t.Errorf("intake must be drained after resampling, holds %d", c.intake.Len())
	}
}

func TestToTargetRateOverflowSignalsNil(t *testing.T) {
	c := &Capture{
		nativeSR: 48000,
		intake:   recording.NewCircularBuffer(16),
	}
	if out := c.toTargetRate(make([]float32, 32)); out != nil {
		t.Error("intake overflow must return nil so the caller can signal ResampleOverflow")
	}
}

func TestConditionDisabledByDefault(t *testing.T) {
	c := New()
	chunk := make([]float32, 512)
	for i := range chunk {
		chunk[i] = 0.002 // room tone, below the gate threshold
	}
	c.condition(chunk)
	if chunk[0] != 0.002 {
		t.Error("conditioning must be a pass-through until SetConditioning enables it")
	}
}

func TestConditionGatesRoomTone(t *testing.T) {
	c := New()
	c.SetConditioning(true, false)

	chunk := make([]float32, 512)
	for i := range chunk {
		chunk[i] = 0.002
	}
	// A fresh gate starts with no hold armed, so the first quiet chunk is
	// squelched immediately.
	c.condition(chunk)
	for i, s := range chunk {
		if s != 0 {
			t.Fatalf("sample %d = %v, want gated to 0", i, s)
		}
	}
}

func TestConditionAGCLevelsQuietSignal(t *testing.T) {
	c := New()
	c.SetConditioning(false, true)

	var last float32
	for i := 0; i < 200; i++ {
		chunk := make([]float32, 512)
		for j := range chunk {
			chunk[j] = 0.02
		}
		c.condition(chunk)
		last = chunk[0]
	}
	if last <= 0.02 {
		t.Errorf("sustained quiet input should be boosted, got %v", last)
	}
}

func TestTrySignalNeverBlocks(t *testing.T) {
	ch := make(chan recording.StopReason, 1)
	trySignal(ch, recording.BufferFull)
	trySignal(ch, recording.StreamError) // full channel: must drop, not block
	if got := <-ch; got != recording.BufferFull {
		t.Errorf("want first signal retained, got %v", got)
	}
}
