package bot

import "context"

// endSession closes the conversation for good. The session record stays
// around for audit; only the status flag is terminal.
func (a *Actions) endSession(_ context.Context, ex *Exchange) (Outcome, error) {
	ex.Session.Status = StatusClosed
	return next(ex.Step), nil
}

// saveSessionVariables merges the step's authored args into the session's
// working memory.
func (a *Actions) saveSessionVariables(_ context.Context, ex *Exchange) (Outcome, error) {
	for key, value := range ex.Step.Args {
		ex.Session.SetVariable(key, value)
	}
	return next(ex.Step), nil
}

// saveSessionVariablesWithUserInput stores the raw utterance under the step's
// first args key.
func (a *Actions) saveSessionVariablesWithUserInput(_ context.Context, ex *Exchange) (Outcome, error) {
	if key, ok := firstArgKey(ex.Step.Args); ok {
		ex.Session.SetVariable(key, ex.UserSay.Message)
	}
	return next(ex.Step), nil
}

func (a *Actions) talkingToHuman(_ context.Context, ex *Exchange) (Outcome, error) {
	ex.Session.TalkingToHuman = true
	return next(ex.Step), nil
}

// changeSayMessage swaps the step's outbound message for whatever the last
// diagnostic run left under variables.orchestratorMessage, when present.
func (a *Actions) changeSayMessage(_ context.Context, ex *Exchange) (Outcome, error) {
	message, _ := ex.Session.Variables["orchestratorMessage"].(string)
	if message != "" && ex.Step.Say != nil {
		ex.Step.Say.Message = message
	}
	return next(ex.Step), nil
}
