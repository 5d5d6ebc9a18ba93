package bot

import "context"

// launchBook runs a remote diagnostic script against the user's machine. The
// step names the book; every other arg is payload, with empty values filled
// from the session variables so flows can forward collected answers. The
// book's categorical verdict routes through step.results and is kept on the
// session for a later checkDiagnosticsResults.
func (a *Actions) launchBook(ctx context.Context, ex *Exchange) (Outcome, error) {
	session := ex.Session
	if session.Ticket == nil || session.Diagnostics == nil {
		return resultError(ex.Step), nil
	}

	books, err := a.orch.Books(ctx, ex.Token)
	if err != nil {
		return resultError(ex.Step, AsCallError("fetchBooks", err, map[string]any{"neoBotId": session.NeoBotID})), nil
	}
	name := stringArg(ex.Step.Args, "book")
	var book *Book
	for i := range books {
		if books[i].Filename == name {
			book = &books[i]
			break
		}
	}
	if book == nil {
		return resultError(ex.Step), nil
	}

	payload := make(map[string]any, len(ex.Step.Args))
	for key, value := range ex.Step.Args {
		if key == "book" {
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			value = session.Variables[key]
		}
		payload[key] = value
	}

	result, err := a.orch.LaunchBook(ctx, ex.Token, book.ID, payload)
	if err != nil {
		return resultError(ex.Step, AsCallError("launchBook", err, map[string]any{"book": name, "payload": payload})), nil
	}
	if result.Message != "" {
		session.SetVariable("orchestratorMessage", result.Message)
	}
	session.DiagnosticExitType = result.Value
	return Outcome{Next: resultCoord(ex.Step, result.Value)}, nil
}

// sendClosureToOrchestrator reports the user's verdict on the resolution. The
// step must pin accepted as a real boolean; the orchestrator's answer routes
// through step.results.
func (a *Actions) sendClosureToOrchestrator(ctx context.Context, ex *Exchange) (Outcome, error) {
	session := ex.Session
	accepted, ok := ex.Step.Args["accepted"].(bool)
	if session.Ticket == nil || !ok {
		return resultError(ex.Step), nil
	}
	result, err := a.orch.SendClosure(ctx, ex.Token, session.Ticket.UID, accepted)
	if err != nil {
		return resultError(ex.Step, AsCallError("sendClosure", err, map[string]any{"ticketUid": session.Ticket.UID, "accepted": accepted})), nil
	}
	return Outcome{Next: resultCoord(ex.Step, result.Value)}, nil
}

// checkDiagnosticsResults routes on the verdict the last launchBook left on
// the session.
func (a *Actions) checkDiagnosticsResults(_ context.Context, ex *Exchange) (Outcome, error) {
	return Outcome{Next: resultCoord(ex.Step, ex.Session.DiagnosticExitType)}, nil
}
