package recording_test

import (
	"testing"

	"dictation/internal/recording"
)

func TestStartRecordingOnlyFromIdle(t *testing.T) {
	m := recording.New()
	if _, err := m.StartRecording(recording.SampleRate); err != nil {
		t.Fatalf("start from idle: %v", err)
	}
	if m.State() != recording.Recording {
		t.Fatalf("expected Recording, got %v", m.State())
	}
	if _, err := m.StartRecording(recording.SampleRate); err != recording.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition starting twice, got %v", err)
	}
}

func TestHappyPathLifecycle(t *testing.T) {
	m := recording.New()
	buf, err := m.StartRecording(recording.SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	buf.TryAppend([]float32{0.1, 0.2, 0.3})

	rec, err := m.StopRecording(recording.UserStop)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if m.State() != recording.Processing {
		t.Fatalf("expected Processing, got %v", m.State())
	}
	if rec.Buffer.Len() != 3 {
		t.Fatalf("expected 3 samples snapshotted, got %d", rec.Buffer.Len())
	}

	if err := m.FinishProcessing(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.State() != recording.Idle {
		t.Fatalf("expected Idle after finish, got %v", m.State())
	}
	if m.GetLastRecording() == nil {
		t.Fatal("expected last recording to be promoted")
	}
}

func TestAbortDiscardsBufferAndDoesNotPromote(t *testing.T) {
	m := recording.New()
	buf, _ := m.StartRecording(recording.SampleRate)
	buf.TryAppend([]float32{1, 2, 3})

	if err := m.AbortRecording(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if m.State() != recording.Idle {
		t.Fatalf("expected Idle after abort, got %v", m.State())
	}
	if m.GetLastRecording() != nil {
		t.Fatal("abort must not promote the active buffer to last")
	}
}

func TestAbortThenStartDoesNotLeakSamples(t *testing.T) {
	m := recording.New()
	buf1, _ := m.StartRecording(recording.SampleRate)
	buf1.TryAppend([]float32{9, 9, 9})
	_ = m.AbortRecording()

	buf2, err := m.StartRecording(recording.SampleRate)
	if err != nil {
		t.Fatalf("restart after abort: %v", err)
	}
	if buf2.Len() != 0 {
		t.Fatalf("expected fresh buffer, got %d leaked samples", buf2.Len())
	}
}

func TestIllegalTransitionsFailWithoutMutatingState(t *testing.T) {
	m := recording.New()
	if err := m.TransitionTo(recording.Processing); err != recording.ErrInvalidTransition {
		t.Fatalf("Idle->Processing should fail, got %v", err)
	}
	if m.State() != recording.Idle {
		t.Fatalf("state must be unchanged after failed transition, got %v", m.State())
	}
}

func TestBufferStopsAtCapExactly(t *testing.T) {
	m := recording.New()
	buf, _ := m.StartRecording(recording.SampleRate)

	chunk := make([]float32, 1000)
	for i := range chunk {
		chunk[i] = 0.5
	}
	var full bool
	for i := 0; i < recording.MaxSamples/1000+1; i++ {
		f, ok := buf.TryAppend(chunk)
		if !ok {
			t.Fatalf("unexpected contention on uncontended buffer")
		}
		if f {
			full = true
			break
		}
	}
	if !full {
		t.Fatal("expected buffer to report full at the cap")
	}
	if buf.Len() != recording.MaxSamples {
		t.Fatalf("expected exactly %d samples at cap, got %d", recording.MaxSamples, buf.Len())
	}
}

func TestCircularBufferTotalPushedMonotonicAcrossClear(t *testing.T) {
	r := recording.NewCircularBuffer(4)
	r.Push([]float32{1, 2, 3, 4, 5})
	if got := r.TotalPushed(); got != 5 {
		t.Fatalf("expected TotalPushed=5, got %d", got)
	}
	r.Clear()
	if got := r.TotalPushed(); got != 5 {
		t.Fatalf("Clear must not reset TotalPushed, got %d", got)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after Clear, got %d", r.Len())
	}
}

func TestCircularBufferDrainPreservesOrderAfterWrap(t *testing.T) {
	r := recording.NewCircularBuffer(3)
	r.Push([]float32{1, 2, 3, 4, 5}) // wraps: ring holds {3,4,5}
	got := r.Drain()
	want := []float32{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
