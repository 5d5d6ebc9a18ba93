package bot

import (
	"context"
	"slices"
	"sort"
)

// Gate routes a turn toward a different flow, either automatically from the
// classified intent of free text, or manually from an option the user picked.
type Gate struct {
	NLU     IntentFinder
	Flows   FlowLoader
	Mapping map[string][]string
}

// Automatic classifies the utterance and looks the intent up in the static
// flow/intent mapping. On a match it lands on the matched flow, keeping the
// step's authored next step id; otherwise it returns the step's fallback.
// Classifier failures are reported alongside the fallback coordinate.
func (g *Gate) Automatic(ctx context.Context, message string, step *Step) (Coord, *CallError) {
	intent, err := g.NLU.FindIntent(ctx, message)
	if err != nil {
		return step.Follow.FallbackCoord, AsCallError("flowGate", err, map[string]any{"message": message})
	}
	flow := g.FlowByIntent(intent.Name)
	if flow == "" {
		return step.Follow.FallbackCoord, nil
	}
	return Coord{Flow: flow, StepID: step.Follow.NextCoord.StepID}, nil
}

// Manual resolves a chosen option whose value is a flow uid directly against
// the flow catalog, landing on that flow's starting step. No classifier call.
func (g *Gate) Manual(option *Option, step *Step) Coord {
	if option == nil {
		return step.Follow.FallbackCoord
	}
	uid, ok := option.Value.(string)
	if !ok || uid == "" {
		return step.Follow.FallbackCoord
	}
	catalog, err := g.Flows.Catalog()
	if err != nil {
		return step.Follow.FallbackCoord
	}
	for _, info := range catalog {
		if info.UID == uid {
			return Coord{Flow: info.Filename, StepID: info.StartingID}
		}
	}
	return step.Follow.FallbackCoord
}

// FlowByIntent returns the name of the flow owning the given intent, or "".
// Keys are scanned in sorted order so overlapping mappings stay deterministic.
func (g *Gate) FlowByIntent(intent string) string {
	names := make([]string, 0, len(g.Mapping))
	for name := range g.Mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if slices.Contains(g.Mapping[name], intent) {
			return name
		}
	}
	return ""
}

// AsCallError normalizes any failure into trace data. Errors already shaped
// by a client pass through untouched; anything else is wrapped under the
// given source with a contextual payload.
func AsCallError(source string, err error, data any) *CallError {
	if ce, ok := err.(*CallError); ok {
		return ce
	}
	return &CallError{Source: source, Message: err.Error(), Data: data}
}
