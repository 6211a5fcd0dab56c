package repositories

import (
	"context"

	"github.com/fabriko/shipwright/internal/domain/entities"
)

// ProviderRepository abstracts a Git hosting service that offers low-level
// commit primitives and a workflow automation API. Implementations live in
// the infrastructure layer.
type ProviderRepository interface {
	Name() string

	// GetRepository resolves repository metadata, including the default branch.
	GetRepository(ctx context.Context, owner, name string) (entities.Repository, error)

	// CheckWriteAccess is an advisory preflight: a true result does not
	// guarantee a subsequent publish will succeed.
	CheckWriteAccess(ctx context.Context, repo entities.Repository) (bool, error)

	// PublishCommit applies the request's files as a single atomic commit on
	// the branch head. Only the final ref update is visible to other readers;
	// any earlier failure leaves the branch untouched.
	PublishCommit(ctx context.Context, repo entities.Repository, req entities.CommitRequest) (entities.CommitResult, error)

	// DispatchWorkflow triggers the named workflow. Inputs are stringified at
	// this boundary; an empty ref targets the default branch.
	DispatchWorkflow(ctx context.Context, repo entities.Repository, workflowFile, ref string, inputs entities.WorkflowInputs) error

	// ListWorkflowRuns returns the newest runs of the workflow, most recent
	// first, up to limit.
	ListWorkflowRuns(ctx context.Context, repo entities.Repository, workflowFile string, limit int) ([]entities.WorkflowRun, error)

	// GetWorkflowRun fetches one run by id.
	GetWorkflowRun(ctx context.Context, repo entities.Repository, runID int64) (entities.WorkflowRun, error)

	// ListRunJobs returns the jobs of a run, for failure diagnostics.
	ListRunJobs(ctx context.Context, repo entities.Repository, runID int64) ([]entities.RunJob, error)

	// ListTemplateTags returns the repository's tags sorted newest first, so
	// a wizard can offer a template version picker.
	ListTemplateTags(ctx context.Context, repo entities.Repository) ([]string, error)
}
