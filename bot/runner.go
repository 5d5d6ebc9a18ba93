package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaxHops bounds intra-turn recursion across flow boundaries. A well-formed
// flow reaches a waiting step long before this; hitting the cap means the
// flow is authored in a loop and the turn must fail loudly instead of
// spinning.
const MaxHops = 50

// ErrTooManyHops reports a turn that never reached a waiting step.
var ErrTooManyHops = errors.New("flow never reached a step waiting for user input")

// FallbackSayMessage is returned when a waiting step has nothing to say,
// which only happens on badly authored flows.
const FallbackSayMessage = "Hu ho"

// Runner executes one conversation turn: locate the current step, substitute
// its outbound message, dispatch its action, record the trace, persist, and
// keep walking (possibly across flows) until a step waits for user input.
type Runner struct {
	log       *slog.Logger
	registry  *Registry
	flows     FlowLoader
	sessions  SessionSaver
	messenger Messenger
}

func NewRunner(log *slog.Logger, registry *Registry, flows FlowLoader, sessions SessionSaver, messenger Messenger) *Runner {
	return &Runner{log: log, registry: registry, flows: flows, sessions: sessions, messenger: messenger}
}

// Run drives the session until the flow waits for new input, returning the
// session and what the bot has to say. Recoverable failures are already in
// the trace when Run returns; a non-nil error is fatal and means the trace
// built during this call was not fully persisted.
func (r *Runner) Run(ctx context.Context, session *Session, flow Flow, userSay UserSay, token string) (*Session, Say, error) {
	for hop := 0; hop < MaxHops; hop++ {
		found, err := FindStep(flow, session.NextStep)
		if err != nil {
			return session, Say{}, err
		}
		step := cloneStep(found)

		if step.Say != nil && step.Say.Message != "" {
			step.Say.Message = Substitute(r.log, session, step.Say.Message)
		}

		outcome := Outcome{Next: step.Follow.NextCoord}
		if handler, ok := r.registry.Lookup(step.Action); ok {
			ex := &Exchange{Session: session, Step: step, UserSay: userSay, Token: token}
			outcome, err = handler.Execute(ctx, ex)
			if err != nil {
				return session, Say{}, fmt.Errorf("action %s: %w", step.Action, err)
			}
		}
		session.NextStep = outcome.Next

		// Errors first, then the step that produced them.
		for _, callErr := range outcome.Errors {
			r.log.Warn("recoverable call failure", "source", callErr.Source, "error", callErr.Message)
			session.PushError(callErr)
		}
		session.PushStep(step)

		if step.Say != nil && step.Say.Message != "" {
			session.History = append(session.History, *step.Say)
			r.deliver(ctx, session, *step.Say, token)
		}

		if step.Checkpoint {
			session.Checkpoint = Coord{Flow: step.Flow, StepID: step.ID}
		}

		session.Flow = session.NextStep.Flow
		if err := r.sessions.Save(ctx, session); err != nil {
			return session, Say{}, fmt.Errorf("persisting session %s: %w", session.ID, err)
		}

		if step.WaitForUserInput {
			say := Say{Message: FallbackSayMessage}
			if step.Say != nil {
				say = *step.Say
			}
			return session, say, nil
		}

		if session.NextStep.Flow != NormalizeName(flow.Name) {
			next, err := r.flows.Load(session.NextStep.Flow)
			if err != nil {
				return session, Say{}, err
			}
			flow = next
		}
	}
	return session, Say{}, fmt.Errorf("%w: session %s flow %s", ErrTooManyHops, session.ID, flow.Name)
}

// deliver pushes the utterance to the messaging sink and the chat-history
// recorder. Both are best-effort: failures land in the trace after the step.
func (r *Runner) deliver(ctx context.Context, session *Session, say Say, token string) {
	if r.messenger == nil {
		return
	}
	message := Message{
		Content:    say.Message,
		Options:    say.Options,
		Sender:     session.NeoBotID,
		Recipients: []int{session.UserNeoID},
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if message.Options == nil {
		message.Options = []Option{}
	}
	if session.Ticket != nil {
		message.TicketUID = session.Ticket.UID
	}
	if err := r.messenger.Send(ctx, token, message); err != nil {
		session.PushError(AsCallError("sendMessage", err, map[string]any{"content": say.Message}))
	}
	if err := r.messenger.RecordHistory(ctx, token, session, say); err != nil {
		session.PushError(AsCallError("recordHistory", err, map[string]any{"message": say}))
	}
}

// cloneStep copies the parts of a step the turn mutates, so substitution and
// say rewrites never leak into the loaded flow document.
func cloneStep(step Step) *Step {
	copied := step
	if step.Say != nil {
		say := *step.Say
		say.Options = append([]Option(nil), step.Say.Options...)
		copied.Say = &say
	}
	return &copied
}
