package entities

// OperationStatus is the caller-visible lifecycle of a tracked operation.
// Transitions are monotonic within one run: idle -> deploying -> success or
// error. Leaving a terminal state requires an explicit reset.
type OperationStatus string

const (
	StatusIdle      OperationStatus = "idle"
	StatusDeploying OperationStatus = "deploying"
	StatusSuccess   OperationStatus = "success"
	StatusError     OperationStatus = "error"
)

// Terminal reports whether no further automatic transition can occur.
func (s OperationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// TrackedOperation is one logical action in progress. It is mutated only by
// its coordinator, under the coordinator's lock; callers observe it through
// OperationSnapshot copies.
type TrackedOperation struct {
	Action     Action
	Status     OperationStatus
	Run        *WorkflowRun
	LogLines   []string
	Generation uint64 // Bumped on reset; stale poll results carry the old value
	PollActive bool
}

// NewTrackedOperation creates an idle operation slot for the given action.
func NewTrackedOperation(action Action) *TrackedOperation {
	return &TrackedOperation{Action: action, Status: StatusIdle}
}

// AppendLog appends a log line unless it duplicates the previous line.
// Returns true if the line was appended.
func (op *TrackedOperation) AppendLog(line string) bool {
	if n := len(op.LogLines); n > 0 && op.LogLines[n-1] == line {
		return false
	}
	op.LogLines = append(op.LogLines, line)
	return true
}

// Reset returns the slot to idle and clears the bound run and log lines.
// The generation bump invalidates any poll result still in flight.
func (op *TrackedOperation) Reset() {
	op.Status = StatusIdle
	op.Run = nil
	op.LogLines = nil
	op.PollActive = false
	op.Generation++
}

// Snapshot returns an immutable copy safe to hand to callers.
func (op *TrackedOperation) Snapshot() OperationSnapshot {
	snap := OperationSnapshot{
		Action:     op.Action,
		Status:     op.Status,
		LogLines:   append([]string(nil), op.LogLines...),
		PollActive: op.PollActive,
	}
	if op.Run != nil {
		run := *op.Run
		snap.Run = &run
	}
	return snap
}

// OperationSnapshot is a point-in-time copy of a TrackedOperation.
type OperationSnapshot struct {
	Action     Action
	Status     OperationStatus
	Run        *WorkflowRun
	LogLines   []string
	PollActive bool
}
