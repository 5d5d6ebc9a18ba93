package bot

import (
	"context"
	"slices"
	"strings"
)

// Words the yes/no gate understands without asking the classifier. Users talk
// to the bot in English or French; anything else goes through intent
// classification, and an unclear verdict falls back.
var agreeIntents = []string{"agree", "yes", "oui", "y"}

// targetFlow classifies the utterance and redirects the session to whichever
// flow owns the detected intent, landing on the step's authored next id or
// the target flow's starting step.
func (a *Actions) targetFlow(ctx context.Context, ex *Exchange) (Outcome, error) {
	intent, err := a.nlu.FindIntent(ctx, ex.UserSay.Message)
	if err != nil {
		return fallback(ex.Step, AsCallError("targetFlow", err, map[string]any{"message": ex.UserSay.Message})), nil
	}
	flow := a.gate.FlowByIntent(intent.Name)
	if flow == "" {
		return fallback(ex.Step), nil
	}
	stepID := ex.Step.Follow.NextCoord.StepID
	if stepID == 0 {
		stepID = a.startingID(flow)
	}
	return Outcome{Next: Coord{Flow: flow, StepID: stepID}}, nil
}

// flowGate is the automatic flow switch: intent classification plus the
// static flow/intent mapping. The utterance is recorded on the open ticket.
func (a *Actions) flowGate(ctx context.Context, ex *Exchange) (Outcome, error) {
	a.recordUtterance(ex)
	coord, callErr := a.gate.Automatic(ctx, ex.UserSay.Message, ex.Step)
	if callErr != nil {
		return Outcome{Next: coord, Errors: []*CallError{callErr}}, nil
	}
	return Outcome{Next: coord}, nil
}

// manualFlowGate switches flow from an option the user picked, no classifier
// involved.
func (a *Actions) manualFlowGate(_ context.Context, ex *Exchange) (Outcome, error) {
	a.recordUtterance(ex)
	return Outcome{Next: a.gate.Manual(ex.UserSay.Option, ex.Step)}, nil
}

// yesOrNoGate interprets agreement: a picked option answers directly, free
// text is classified. Ambiguity falls back rather than guessing.
func (a *Actions) yesOrNoGate(ctx context.Context, ex *Exchange) (Outcome, error) {
	if option := ex.UserSay.Option; option != nil {
		if slices.Contains(agreeIntents, strings.ToLower(option.Label)) || isAffirmativeValue(option.Value) {
			return next(ex.Step), nil
		}
		return fallback(ex.Step), nil
	}
	intent, err := a.nlu.FindIntent(ctx, ex.UserSay.Message)
	if err != nil {
		return fallback(ex.Step, AsCallError("yesOrNoGate", err, map[string]any{"message": ex.UserSay.Message})), nil
	}
	if slices.Contains(agreeIntents, intent.Name) {
		return next(ex.Step), nil
	}
	return fallback(ex.Step), nil
}

// displayAllAvailableFlows appends one option per cataloged flow to the
// step's say, so the user can pick a flow by hand (see manualFlowGate).
func (a *Actions) displayAllAvailableFlows(_ context.Context, ex *Exchange) (Outcome, error) {
	catalog, err := a.flows.Catalog()
	if err != nil {
		return fallback(ex.Step, AsCallError("displayAllAvailableFlows", err, nil)), nil
	}
	if ex.Step.Say == nil {
		ex.Step.Say = &Say{}
	}
	for _, info := range catalog {
		label := info.Label
		if label == "" {
			label = info.Name
		}
		ex.Step.Say.Options = append(ex.Step.Say.Options, Option{Label: label, Value: info.UID})
	}
	return next(ex.Step), nil
}

// isAffirmativeValue recognizes the numeric "yes" convention flow authors use
// for option values. JSON decoding hands numbers back as float64.
func isAffirmativeValue(value any) bool {
	switch v := value.(type) {
	case int:
		return v == 1
	case float64:
		return v == 1
	}
	return false
}

func (a *Actions) startingID(flow string) int {
	catalog, err := a.flows.Catalog()
	if err != nil {
		// Zero still resolves to the flow's starting step at lookup time.
		a.log.Warn("cannot list flow catalog", "flow", flow, "error", err)
		return 0
	}
	for _, info := range catalog {
		if info.Filename == flow || info.Name == flow {
			return info.StartingID
		}
	}
	return 0
}

// recordUtterance keeps the ticket's content in sync with what the user said
// while being routed between flows.
func (a *Actions) recordUtterance(ex *Exchange) {
	if ex.Session.Ticket != nil {
		ex.Session.Ticket.Content = utteranceOf(ex.UserSay)
	}
}
