package bot

import "context"

// Exchange carries everything one action invocation may read or mutate. Step
// is the runner's working copy for this turn: handlers may rewrite its say.
type Exchange struct {
	Session *Session
	Step    *Step
	UserSay UserSay
	Token   string
}

// Outcome is what an action decided: where the flow goes next, plus any
// recoverable errors to record ahead of the step in the trace.
type Outcome struct {
	Next   Coord
	Errors []*CallError
}

// Handler executes one named action. Expected external failures must be
// converted into Outcome.Errors plus a fallback coordinate; a returned error
// is fatal and aborts the turn.
type Handler interface {
	Execute(ctx context.Context, ex *Exchange) (Outcome, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ex *Exchange) (Outcome, error)

func (f HandlerFunc) Execute(ctx context.Context, ex *Exchange) (Outcome, error) {
	return f(ctx, ex)
}

// Registry maps action names to handlers. Steps naming an unregistered action
// run as pass-throughs, same as steps with no action at all.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}
