package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imishinist/fe-bench/internal/models"
)

// ErrNoMatchingSelection is returned when filters match nothing configured.
var ErrNoMatchingSelection = errors.New("no matching selection")

// Selection restricts which technologies and flows run.
type Selection struct {
	Techs []string
	Flows []string
	// Runs overrides Suite.Runs when positive.
	Runs int
}

// Plan is the resolved work list of one invocation.
type Plan struct {
	Apps  []models.AppTarget
	Flows []models.FlowDefinition
	Runs  int
}

// Resolve applies the selection to the suite. It fails before any work
// starts when a filter matches nothing.
func (s *Suite) Resolve(sel Selection, lookup func(string) (models.FlowScript, bool)) (*Plan, error) {
	if sel.Runs < 0 {
		return nil, fmt.Errorf("runs override must be positive, got %d", sel.Runs)
	}

	plan := &Plan{Runs: s.Runs}
	if sel.Runs > 0 {
		plan.Runs = sel.Runs
	}

	for _, app := range s.Apps {
		if matches(sel.Techs, app.Tech) {
			plan.Apps = append(plan.Apps, app)
		}
	}
	if len(plan.Apps) == 0 {
		return nil, fmt.Errorf("%w: no applications matched --tech %s", ErrNoMatchingSelection, strings.Join(sel.Techs, ","))
	}

	for _, fs := range s.Flows {
		if !matches(sel.Flows, fs.Name) {
			continue
		}
		script, ok := lookup(fs.Script)
		if !ok {
			return nil, fmt.Errorf("flow %s: unknown script %q", fs.Name, fs.Script)
		}
		plan.Flows = append(plan.Flows, models.FlowDefinition{
			Name:      fs.Name,
			EntryPath: fs.Entry,
			Script:    script,
		})
	}
	if len(plan.Flows) == 0 {
		return nil, fmt.Errorf("%w: no flows matched --flow %s", ErrNoMatchingSelection, strings.Join(sel.Flows, ","))
	}

	return plan, nil
}

func matches(filters []string, value string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == value {
			return true
		}
	}
	return false
}
