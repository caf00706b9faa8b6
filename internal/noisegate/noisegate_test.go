package noisegate_test

import (
	"testing"

	"dictation/internal/noisegate"
)

func chunk(amplitude float32) []float32 {
	out := make([]float32, 512)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func allZero(chunk []float32) bool {
	for _, s := range chunk {
		if s != 0 {
			return false
		}
	}
	return true
}

func TestLoudChunkPassesThrough(t *testing.T) {
	g := noisegate.New()
	c := chunk(0.2)
	rms := g.Process(c)
	if allZero(c) {
		t.Fatal("above-threshold chunk must not be gated")
	}
	if !g.IsOpen() {
		t.Error("gate should be open on a loud chunk")
	}
	if rms < 0.19 || rms > 0.21 {
		t.Errorf("reported RMS = %v, want ~0.2", rms)
	}
}

func TestQuietChunkGatedAfterHold(t *testing.T) {
	g := noisegate.New()
	// Open the gate, then feed room tone until the hold runs out.
	g.Process(chunk(0.2))
	for i := 0; i < noisegate.DefaultHold; i++ {
		c := chunk(0.002)
		g.Process(c)
		if allZero(c) {
			t.Fatalf("chunk %d gated during the hold period", i)
		}
	}
	c := chunk(0.002)
	g.Process(c)
	if !allZero(c) {
		t.Fatal("chunk after hold expiry must be zeroed")
	}
	if g.IsOpen() {
		t.Error("gate should report closed after squelching")
	}
}

func TestSpeechReopensGateImmediately(t *testing.T) {
	g := noisegate.New()
	// Run the gate fully closed.
	for i := 0; i < noisegate.DefaultHold+2; i++ {
		g.Process(chunk(0.002))
	}
	c := chunk(0.3)
	g.Process(c)
	if allZero(c) {
		t.Fatal("speech-level chunk must pass even from a closed gate")
	}
	if !g.IsOpen() {
		t.Error("gate should be open again")
	}
}

func TestDisabledGatePassesEverything(t *testing.T) {
	g := noisegate.New()
	g.SetEnabled(false)
	c := chunk(0.0001)
	g.Process(c)
	if allZero(c) {
		t.Fatal("disabled gate must never zero a chunk")
	}
	if !g.IsOpen() {
		t.Error("disabled gate reports open")
	}
}

func TestSetThresholdSliderMapping(t *testing.T) {
	g := noisegate.New()

	g.SetThreshold(0)
	if got := g.Threshold(); got != 0.001 {
		t.Errorf("threshold at slider 0 = %v, want 0.001", got)
	}
	g.SetThreshold(100)
	if got := g.Threshold(); got < 0.099 || got > 0.101 {
		t.Errorf("threshold at slider 100 = %v, want ~0.10", got)
	}
	g.SetThreshold(-10)
	if got := g.Threshold(); got != 0.001 {
		t.Errorf("threshold must clamp below 0, got %v", got)
	}
	g.SetThreshold(400)
	if got := g.Threshold(); got > 0.101 {
		t.Errorf("threshold must clamp above 100, got %v", got)
	}
}

func TestResetClearsHold(t *testing.T) {
	g := noisegate.New()
	g.Process(chunk(0.2)) // arms the hold
	g.Reset()
	c := chunk(0.002)
	g.Process(c)
	if !allZero(c) {
		t.Fatal("after Reset the hold must be gone; quiet chunk should gate immediately")
	}
}

func TestHoldSpansIntraWordGap(t *testing.T) {
	g := noisegate.New()
	g.Process(chunk(0.2))
	// Two quiet chunks (64 ms) — the gap inside a word — must survive.
	for i := 0; i < 2; i++ {
		c := chunk(0.002)
		g.Process(c)
		if allZero(c) {
			t.Fatalf("chunk %d of a short gap was gated", i)
		}
	}
}
