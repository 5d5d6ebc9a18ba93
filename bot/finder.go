package bot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStepNotFound signals a structurally broken flow: a coordinate pointing at
// a step that does not exist. This is fatal, never absorbed into the trace.
var ErrStepNotFound = errors.New("no step matches coordinate")

// FindStep returns the step addressed by coord inside flow. A zero StepID
// resolves to the flow's starting step.
func FindStep(flow Flow, coord Coord) (Step, error) {
	id := coord.StepID
	if id == 0 {
		id = flow.StartingID
	}
	for i := range flow.Steps {
		if flow.Steps[i].ID == id {
			return flow.Steps[i], nil
		}
	}
	return Step{}, fmt.Errorf("%w: flow %q step %d", ErrStepNotFound, flow.Name, id)
}

// NormalizeName maps a flow's display name onto its document key: lowercase,
// spaces replaced with underscores.
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
