//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"time"

	"github.com/fabriko/shipwright/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// WorkflowRunBuilder helps create test workflow runs with a fluent interface.
type WorkflowRunBuilder struct {
	*testkit.BaseBuilder
	id         int64
	status     entities.RunStatus
	conclusion entities.RunConclusion
	url        string
	createdAt  time.Time
}

// NewWorkflowRunBuilder creates a new workflow run builder with sensible defaults.
func NewWorkflowRunBuilder() *WorkflowRunBuilder {
	return &WorkflowRunBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		id:          1,
		status:      entities.RunStatusQueued,
		conclusion:  entities.ConclusionNone,
		url:         "https://example.com/runs/1",
		createdAt:   time.Now(),
	}
}

// WithID sets the run id.
func (b *WorkflowRunBuilder) WithID(id int64) *WorkflowRunBuilder {
	b.id = id
	return b
}

// WithStatus sets the raw run status.
func (b *WorkflowRunBuilder) WithStatus(status entities.RunStatus) *WorkflowRunBuilder {
	b.status = status
	return b
}

// WithConclusion marks the run completed with the given conclusion.
func (b *WorkflowRunBuilder) WithConclusion(conclusion entities.RunConclusion) *WorkflowRunBuilder {
	b.status = entities.RunStatusCompleted
	b.conclusion = conclusion
	return b
}

// WithURL sets the external run URL.
func (b *WorkflowRunBuilder) WithURL(url string) *WorkflowRunBuilder {
	b.url = url
	return b
}

// WithCreatedAt sets the creation timestamp.
func (b *WorkflowRunBuilder) WithCreatedAt(createdAt time.Time) *WorkflowRunBuilder {
	b.createdAt = createdAt
	return b
}

// Build creates the workflow run (satisfies testkit.Builder interface).
func (b *WorkflowRunBuilder) Build() interface{} {
	return b.BuildWorkflowRun()
}

// BuildWorkflowRun creates the workflow run with a concrete return type.
func (b *WorkflowRunBuilder) BuildWorkflowRun() entities.WorkflowRun {
	return entities.WorkflowRun{
		ID:         b.id,
		Status:     b.status,
		Conclusion: b.conclusion,
		URL:        b.url,
		CreatedAt:  b.createdAt,
		UpdatedAt:  b.createdAt,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *WorkflowRunBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.id = 1
	b.status = entities.RunStatusQueued
	b.conclusion = entities.ConclusionNone
	b.url = "https://example.com/runs/1"
	b.createdAt = time.Now()
	return b
}

// Clone creates a deep copy of the WorkflowRunBuilder.
func (b *WorkflowRunBuilder) Clone() testkit.Builder {
	return &WorkflowRunBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		id:          b.id,
		status:      b.status,
		conclusion:  b.conclusion,
		url:         b.url,
		createdAt:   b.createdAt,
	}
}
