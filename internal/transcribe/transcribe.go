// Package transcribe runs ASR over finished recordings:
// a single shared, pre-loaded ASR model instance run behind a concurrency
// semaphore, a per-submission timeout, and a per-submission Idle ->
// Transcribing -> {Completed, Error} -> Idle state machine that always
// returns to Idle, even when the underlying worker fails catastrophically.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors distinguishing the failure taxonomy: model-not-loaded is
// a distinct kind from inference failure, and empty audio is an error
// rather than a silent success.
var (
	ErrNotLoaded   = errors.New("transcribe: model not loaded")
	ErrEmptyAudio  = errors.New("transcribe: empty audio")
	ErrTimeout     = errors.New("transcribe: timed out")
	ErrInference   = errors.New("transcribe: inference failed")
)

// Model runs ASR inference over a finished recording's samples. Loading a
// Model is expensive (multiple seconds); the Executor loads exactly one and
// reuses it for the life of the process. Implementations need not be safe
// for concurrent use — Executor's model mutex serializes every call.
type Model interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	Close() error
}

// State is one submission's lifecycle stage.
type State int

const (
	Idle State = iota
	Transcribing
	Completed
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transcribing:
		return "transcribing"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultConcurrency caps simultaneous transcriptions; the bound exists to
// limit memory with a large model, not as a latency knob.
const DefaultConcurrency = 2

// DefaultTimeout is the per-submission timeout.
const DefaultTimeout = 60 * time.Second

// Result is the outcome of a successful Submit.
type Result struct {
	Text       string
	DurationMs int64
}

// Executor owns the shared model instance and the concurrency/timeout
// policy around it. The model mutex is non-poisoning: a panic recovered
// inside one submission releases the lock normally so later submissions
// can still proceed.
type Executor struct {
	mu       sync.Mutex // serializes model access; never held across a suspension point other than the inference call itself
	model    Model
	loader   func() (Model, error) // re-invoked by Submit after NotifySystemWake
	sem      chan struct{}
	timeout  time.Duration

	reloadMu     sync.Mutex
	needsReload  bool // set after a suspected system sleep; cleared on the next successful (re)load

	stateMu sync.Mutex
	state   State
}

// Config tunes concurrency and per-submission timeout; zero values fall
// back to the defaults above.
type Config struct {
	MaxConcurrent int
	Timeout       time.Duration
}

// New returns an Executor wrapping an already-loaded model. loader, if
// non-nil, is used by Submit to obtain a fresh instance after a suspected
// system sleep; pass nil if reload-on-wake is not supported by the caller.
func New(model Model, loader func() (Model, error), cfg Config) *Executor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Executor{
		model:   model,
		loader:  loader,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		timeout: cfg.Timeout,
	}
}

// State returns the most recent submission's lifecycle state.
func (e *Executor) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

func (e *Executor) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// NotifySystemWake marks the model as possibly invalid. The next Submit
// reloads it (via loader) before running inference.
func (e *Executor) NotifySystemWake() {
	e.reloadMu.Lock()
	e.needsReload = true
	e.reloadMu.Unlock()
}

// Submit acquires a concurrency slot, runs inference against samples with
// a bounded timeout, and always leaves the executor's per-submission state
// at Idle on return — Transcribing is only ever observable mid-flight via
// State() from another goroutine.
func (e *Executor) Submit(ctx context.Context, samples []float32, sampleRate int) (result Result, err error) {
	if len(samples) == 0 {
		e.setState(Error)
		defer e.setState(Idle)
		return Result{}, ErrEmptyAudio
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-e.sem }()

	e.setState(Transcribing)
	defer e.setState(Idle) // guard: Idle is restored on every exit path, including panics recovered below

	if err := e.reloadIfNeeded(); err != nil {
		e.setState(Error)
		return Result{}, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	started := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				// The model mutex below is released by this same deferred
				// Unlock even though the goroutine is panicking, so a
				// single bad inference call can never wedge later
				// submissions — this is the "non-poisoning" guarantee.
				done <- outcome{err: fmt.Errorf("%w: %v", ErrInference, r)}
			}
		}()
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.model == nil {
			done <- outcome{err: ErrNotLoaded}
			return
		}
		text, err := e.model.Transcribe(timeoutCtx, samples, sampleRate)
		if err != nil {
			done <- outcome{err: fmt.Errorf("%w: %v", ErrInference, err)}
			return
		}
		done <- outcome{text: text}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			e.setState(Error)
			return Result{}, out.err
		}
		e.setState(Completed)
		return Result{Text: out.text, DurationMs: time.Since(started).Milliseconds()}, nil
	case <-timeoutCtx.Done():
		e.setState(Error)
		return Result{}, ErrTimeout
	}
}

func (e *Executor) reloadIfNeeded() error {
	e.reloadMu.Lock()
	needs := e.needsReload
	e.reloadMu.Unlock()
	if !needs || e.loader == nil {
		return nil
	}

	fresh, err := e.loader()
	if err != nil {
		return fmt.Errorf("transcribe: reload after wake: %w", err)
	}

	e.mu.Lock()
	old := e.model
	e.model = fresh
	e.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	e.reloadMu.Lock()
	e.needsReload = false
	e.reloadMu.Unlock()
	return nil
}

// Close releases the underlying model.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}
