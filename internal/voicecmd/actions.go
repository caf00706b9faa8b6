package voicecmd

import (
	"context"
	"fmt"
)

// ErrorKind taxonomizes why a command action failed.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrUnknownAction
	ErrNoHandler
	ErrActionFailed
)

// ActionError carries a taxonomized action failure.
type ActionError struct {
	Kind ErrorKind
	Err  error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "voicecmd: action failed"
}

func (e *ActionError) Unwrap() error { return e.Err }

// ActionFunc performs one action kind given the matched command's
// parameters and any parameters extracted from the input (e.g. a "{param}"
// capture). It returns a human-readable result message on success.
type ActionFunc func(ctx context.Context, params map[string]string) (string, error)

// Dispatcher maps an ActionKind to its handler. open-app, type-text, and
// system-control get built-in handlers registered by the host (they touch
// platform surfaces outside this package's scope); custom actions are
// registered per command ID via RegisterCustom, since their real behavior
// is host/UI-specific.
type Dispatcher struct {
	handlers map[ActionKind]ActionFunc
	custom   map[string]ActionFunc
}

// NewDispatcher returns a Dispatcher with no handlers registered; callers
// wire in platform-specific behavior via Register/RegisterCustom.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[ActionKind]ActionFunc),
		custom:   make(map[string]ActionFunc),
	}
}

// Register installs the handler for a built-in action kind.
func (d *Dispatcher) Register(kind ActionKind, fn ActionFunc) {
	d.handlers[kind] = fn
}

// RegisterCustom installs a per-command handler for ActionCustom commands,
// keyed by command ID.
func (d *Dispatcher) RegisterCustom(commandID string, fn ActionFunc) {
	d.custom[commandID] = fn
}

// Dispatch runs the action associated with cmd, merging cmd's static
// parameters with any dynamically extracted ones (extracted values win on
// key collision).
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, extracted map[string]string) (string, error) {
	params := make(map[string]string, len(cmd.Parameters)+len(extracted))
	for k, v := range cmd.Parameters {
		params[k] = v
	}
	for k, v := range extracted {
		params[k] = v
	}

	if cmd.Action == ActionCustom {
		fn, ok := d.custom[cmd.ID]
		if !ok {
			return "", &ActionError{Kind: ErrNoHandler, Err: fmt.Errorf("voicecmd: no custom handler for command %s", cmd.ID)}
		}
		msg, err := fn(ctx, params)
		if err != nil {
			return "", &ActionError{Kind: ErrActionFailed, Err: err}
		}
		return msg, nil
	}

	fn, ok := d.handlers[cmd.Action]
	if !ok {
		kind := ErrUnknownAction
		switch cmd.Action {
		case ActionOpenApp, ActionTypeText, ActionSystemControl:
			kind = ErrNoHandler
		}
		return "", &ActionError{Kind: kind, Err: fmt.Errorf("voicecmd: no handler registered for action %q", cmd.Action)}
	}
	msg, err := fn(ctx, params)
	if err != nil {
		return "", &ActionError{Kind: ErrActionFailed, Err: err}
	}
	return msg, nil
}
