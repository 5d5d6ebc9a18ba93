package bot

import (
	"log/slog"
	"sort"
	"strings"
)

// Default texture of a freshly created ticket. The French forms are the ITSM
// backend's own placeholders; checkTicketError treats both languages as
// "still empty".
const (
	DefaultTicketName    = "Ticket sans titre"
	DefaultTicketContent = "<p>Ticket sans contenu</p>"
)

var (
	emptyTicketNames    = []string{"", "Ticket without name", DefaultTicketName}
	emptyTicketContents = []string{"", "Ticket without content", "Ticket sans contenu", DefaultTicketContent}
)

// Actions bundles every registered action handler with the external
// collaborators they need.
type Actions struct {
	log     *slog.Logger
	nlu     IntentFinder
	tickets TicketService
	orch    Orchestrator
	gate    *Gate
	flows   FlowLoader
}

func NewActions(log *slog.Logger, nlu IntentFinder, tickets TicketService, orch Orchestrator, gate *Gate, flows FlowLoader) *Actions {
	return &Actions{log: log, nlu: nlu, tickets: tickets, orch: orch, gate: gate, flows: flows}
}

// RegisterAll wires every known action name into the registry.
func (a *Actions) RegisterAll(r *Registry) {
	r.Register("endSession", HandlerFunc(a.endSession))
	r.Register("targetFlow", HandlerFunc(a.targetFlow))
	r.Register("flowGate", HandlerFunc(a.flowGate))
	r.Register("manualFlowGate", HandlerFunc(a.manualFlowGate))
	r.Register("yesOrNoGate", HandlerFunc(a.yesOrNoGate))
	r.Register("displayAllAvailableFlows", HandlerFunc(a.displayAllAvailableFlows))
	r.Register("saveSessionVariables", HandlerFunc(a.saveSessionVariables))
	r.Register("saveSessionVariablesWithUserInput", HandlerFunc(a.saveSessionVariablesWithUserInput))
	r.Register("talkingToHuman", HandlerFunc(a.talkingToHuman))
	r.Register("changeSayMessage", HandlerFunc(a.changeSayMessage))
	r.Register("createTicket", HandlerFunc(a.createTicket))
	r.Register("updateTicket", HandlerFunc(a.updateTicket))
	r.Register("updateTicketWithUserInput", HandlerFunc(a.updateTicketWithUserInput))
	r.Register("deleteTicket", HandlerFunc(a.deleteTicket))
	r.Register("checkTicketError", HandlerFunc(a.checkTicketError))
	r.Register("checkFilePath", HandlerFunc(a.checkFilePath))
	r.Register("addKeyword", HandlerFunc(a.addKeyword))
	r.Register("getResources", HandlerFunc(a.getResources))
	r.Register("setResource", HandlerFunc(a.setResource))
	r.Register("launchBook", HandlerFunc(a.launchBook))
	r.Register("sendClosureToOrchestrator", HandlerFunc(a.sendClosureToOrchestrator))
	r.Register("checkDiagnosticsResults", HandlerFunc(a.checkDiagnosticsResults))
}

func next(step *Step) Outcome {
	return Outcome{Next: step.Follow.NextCoord}
}

func fallback(step *Step, errs ...*CallError) Outcome {
	return Outcome{Next: step.Follow.FallbackCoord, Errors: errs}
}

// resultCoord routes a categorical outcome through step.results, degrading to
// the error entry and finally the fallback coordinate.
func resultCoord(step *Step, outcome string) Coord {
	if coord, ok := step.Results[outcome]; ok {
		return coord
	}
	if coord, ok := step.Results["error"]; ok {
		return coord
	}
	return step.Follow.FallbackCoord
}

func resultError(step *Step, errs ...*CallError) Outcome {
	return Outcome{Next: resultCoord(step, "error"), Errors: errs}
}

// firstArgKey returns the lowest-sorted args key, the conventional slot for
// single-argument actions fed by user input.
func firstArgKey(args map[string]any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys[0], true
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

// wrapHTML joins non-empty fragments with single spaces inside the <p> block
// the ITSM backend expects, unwrapping fragments that are already wrapped.
func wrapHTML(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		fragment = strings.TrimSuffix(strings.TrimPrefix(fragment, "<p>"), "</p>")
		if fragment = strings.TrimSpace(fragment); fragment != "" {
			parts = append(parts, fragment)
		}
	}
	return "<p>" + strings.Join(parts, " ") + "</p>"
}

// utteranceOf is what gating actions record on the ticket: the chosen option's
// label when there is one, the raw utterance otherwise.
func utteranceOf(userSay UserSay) string {
	if userSay.Option != nil {
		return userSay.Option.Label
	}
	return userSay.Message
}
