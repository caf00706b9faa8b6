// Package router applies dictionary expansion and voice-command matching
// to transcribed text, then drives the configured output action against
// the focused application.
package router

import (
	"context"
	"fmt"

	"dictation/internal/dictionary"
	"dictation/internal/shutdown"
	"dictation/internal/voicecmd"
)

// OutcomeKind distinguishes what Router.Route did with a piece of text, so
// the caller can emit the matching event.
type OutcomeKind int

const (
	OutcomeDelivered OutcomeKind = iota
	OutcomeCommandExecuted
	OutcomeCommandFailed
	OutcomeCommandAmbiguous
	OutcomeDeclinedShutdown
)

// Outcome is the result of routing one transcription through expansion,
// command matching, and dispatch.
type Outcome struct {
	Kind        OutcomeKind
	Text        string              // the (possibly expanded) text, valid for OutcomeDelivered
	Command     voicecmd.Command    // valid for OutcomeCommandExecuted/Failed
	Message     string              // action result message, or the failure reason
	Candidates  []voicecmd.Candidate // valid for OutcomeCommandAmbiguous
}

// Router owns the dictionary store, the command registry/matcher/
// dispatcher, and the output synthesizer. Decision order: complete-match
// dictionary entries short-circuit first, then voice commands are scored,
// and only unmatched text reaches paste/type dispatch.
type Router struct {
	Dictionary *dictionary.Store
	Commands   *voicecmd.Registry
	Matcher    *voicecmd.Matcher
	Dispatcher *voicecmd.Dispatcher
	Output     Synthesizer
	Shutdown   *shutdown.Signal
}

// New returns a Router wired with fresh dictionary/command stores and the
// platform output synthesizer. Callers populate Dictionary/Commands via
// their Set methods and register action handlers on Dispatcher.
func New(shutdownSignal *shutdown.Signal) *Router {
	return &Router{
		Dictionary: dictionary.New(),
		Commands:   voicecmd.NewRegistry(),
		Matcher:    voicecmd.NewMatcher(),
		Dispatcher: voicecmd.NewDispatcher(),
		Output:     NewSynthesizer(),
		Shutdown:   shutdownSignal,
	}
}

// Route applies dictionary expansion, then voice-command matching, to text,
// and dispatches the result. Delivery is declined without error once
// shutdown has been signaled — no new keystroke synthesis after that.
func (r *Router) Route(ctx context.Context, text string) (Outcome, error) {
	expanded := r.Dictionary.Expand(text)

	commands := r.Commands.List()
	match := r.Matcher.Match(expanded.Text, commands)

	switch match.Kind {
	case voicecmd.Ambiguous:
		return Outcome{Kind: OutcomeCommandAmbiguous, Candidates: match.Candidates}, nil
	case voicecmd.Exact, voicecmd.Fuzzy:
		msg, err := r.Dispatcher.Dispatch(ctx, match.Candidate.Command, match.Candidate.Parameters)
		if err != nil {
			return Outcome{Kind: OutcomeCommandFailed, Command: match.Candidate.Command, Message: err.Error()}, nil
		}
		return Outcome{Kind: OutcomeCommandExecuted, Command: match.Candidate.Command, Message: msg}, nil
	}

	if r.Shutdown != nil && r.Shutdown.Fired() {
		return Outcome{Kind: OutcomeDeclinedShutdown}, nil
	}

	deliveryLock.Lock()
	defer deliveryLock.Unlock()
	if err := r.Output.Paste(ctx, expanded.Text); err != nil {
		return Outcome{}, fmt.Errorf("router: deliver output: %w", err)
	}
	if expanded.ShouldPressEnter {
		if err := r.Output.PressEnter(ctx); err != nil {
			return Outcome{}, fmt.Errorf("router: press enter: %w", err)
		}
	}
	return Outcome{Kind: OutcomeDelivered, Text: expanded.Text}, nil
}
