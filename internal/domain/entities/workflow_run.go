package entities

import "time"

// RunStatus is the raw lifecycle state reported by the remote pipeline.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
)

// RunConclusion is the terminal verdict of a completed run. It is empty
// while the run is still executing (the remote reports null).
type RunConclusion string

const (
	ConclusionSuccess   RunConclusion = "success"
	ConclusionFailure   RunConclusion = "failure"
	ConclusionCancelled RunConclusion = "cancelled"
	ConclusionNone      RunConclusion = ""
)

// WorkflowRun is one remote pipeline execution. It is created remotely on
// dispatch and only ever observed here, never mutated.
type WorkflowRun struct {
	ID         int64
	Status     RunStatus
	Conclusion RunConclusion
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Completed reports whether the run reached its terminal status.
func (r WorkflowRun) Completed() bool {
	return r.Status == RunStatusCompleted
}

// Succeeded reports whether the run completed with a success conclusion.
func (r WorkflowRun) Succeeded() bool {
	return r.Completed() && r.Conclusion == ConclusionSuccess
}

// RunJob is one job inside a workflow run, used for failure diagnostics.
type RunJob struct {
	Name       string
	Status     RunStatus
	Conclusion RunConclusion
}

// TrackState is the tracker-side view of a run's lifecycle.
type TrackState string

const (
	TrackNotStarted  TrackState = "not_started"
	TrackDiscovering TrackState = "discovering"
	TrackQueued      TrackState = "queued"
	TrackInProgress  TrackState = "in_progress"
	TrackCompleted   TrackState = "completed"
)

// TrackStateFor maps a raw run status onto the tracker lifecycle.
func TrackStateFor(status RunStatus) TrackState {
	switch status {
	case RunStatusQueued:
		return TrackQueued
	case RunStatusInProgress:
		return TrackInProgress
	case RunStatusCompleted:
		return TrackCompleted
	}
	return TrackDiscovering
}
