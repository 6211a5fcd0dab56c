package entities

import "fmt"

// Action identifies a logical operation that maps to a remote workflow.
// The set is closed: every switch over Action must handle all variants.
type Action string

const (
	// Infrastructure actions.
	ActionPlan    Action = "plan"
	ActionApply   Action = "apply"
	ActionDestroy Action = "destroy"

	// Application actions.
	ActionDeploy Action = "deploy"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionStatus Action = "status"
)

// AllActions lists every valid action variant.
func AllActions() []Action {
	return []Action{
		ActionPlan, ActionApply, ActionDestroy,
		ActionDeploy, ActionUpdate, ActionDelete, ActionStatus,
	}
}

// ParseAction converts a raw string into an Action or fails for unknown tags.
func ParseAction(raw string) (Action, error) {
	for _, a := range AllActions() {
		if string(a) == raw {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

func (a Action) String() string { return string(a) }

// IsDestructive reports whether the action removes resources and therefore
// requires two-phase confirmation before it can be triggered.
func (a Action) IsDestructive() bool {
	switch a {
	case ActionDestroy, ActionDelete:
		return true
	case ActionPlan, ActionApply, ActionDeploy, ActionUpdate, ActionStatus:
		return false
	}
	return false
}
