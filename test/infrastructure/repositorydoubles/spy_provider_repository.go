//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies)
// for the provider interface. These are hand-crafted implementations, no
// mock frameworks.
package repositorydoubles

import (
	"context"
	"sync"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/internal/domain/repositories"
)

// DispatchCall records a single invocation of DispatchWorkflow.
type DispatchCall struct {
	WorkflowFile string
	Ref          string
	Inputs       entities.WorkflowInputs
}

// SpyProviderRepository implements repositories.ProviderRepository as a
// configurable spy. Configure the response fields for the methods your test
// exercises, then inspect the call-tracking fields to verify behavior.
// Queue fields are consumed one element per call; the last element repeats
// once the queue is exhausted.
type SpyProviderRepository struct {
	mu sync.Mutex

	// --- identity ---
	ProviderName string

	// --- GetRepository ---
	Repo             entities.Repository
	GetRepositoryErr error

	// --- CheckWriteAccess ---
	WriteAccess    bool
	WriteAccessErr error
	// spy: number of preflight checks
	AccessChecks int

	// --- PublishCommit ---
	PublishResult entities.CommitResult
	PublishErr    error
	// spy: requests received
	PublishCalls []entities.CommitRequest

	// --- DispatchWorkflow ---
	DispatchErr error
	// spy: calls received
	DispatchCalls []DispatchCall

	// --- ListWorkflowRuns ---
	ListRunsQueue [][]entities.WorkflowRun
	ListRunsErr   error
	// spy: number of list polls
	ListRunsCalls int

	// --- GetWorkflowRun ---
	GetRunQueue []entities.WorkflowRun
	GetRunErr   error
	// spy: run ids fetched
	GetRunCalls []int64

	// --- ListRunJobs ---
	Jobs    []entities.RunJob
	JobsErr error

	// --- ListTemplateTags ---
	Tags    []string
	TagsErr error
}

var _ repositories.ProviderRepository = (*SpyProviderRepository)(nil)

func (p *SpyProviderRepository) Name() string {
	if p.ProviderName == "" {
		return "spy"
	}
	return p.ProviderName
}

func (p *SpyProviderRepository) GetRepository(
	_ context.Context,
	owner, name string,
) (entities.Repository, error) {
	if p.GetRepositoryErr != nil {
		return entities.Repository{}, p.GetRepositoryErr
	}
	if p.Repo.Owner == "" {
		return entities.Repository{Owner: owner, Name: name, DefaultBranch: "main"}, nil
	}
	return p.Repo, nil
}

func (p *SpyProviderRepository) CheckWriteAccess(
	_ context.Context,
	_ entities.Repository,
) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AccessChecks++
	return p.WriteAccess, p.WriteAccessErr
}

func (p *SpyProviderRepository) PublishCommit(
	_ context.Context,
	_ entities.Repository,
	req entities.CommitRequest,
) (entities.CommitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PublishCalls = append(p.PublishCalls, req)
	if p.PublishErr != nil {
		return entities.CommitResult{}, p.PublishErr
	}
	return p.PublishResult, nil
}

func (p *SpyProviderRepository) DispatchWorkflow(
	_ context.Context,
	_ entities.Repository,
	workflowFile, ref string,
	inputs entities.WorkflowInputs,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DispatchCalls = append(p.DispatchCalls, DispatchCall{
		WorkflowFile: workflowFile,
		Ref:          ref,
		Inputs:       inputs,
	})
	return p.DispatchErr
}

func (p *SpyProviderRepository) ListWorkflowRuns(
	_ context.Context,
	_ entities.Repository,
	_ string,
	_ int,
) ([]entities.WorkflowRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListRunsCalls++
	if p.ListRunsErr != nil {
		return nil, p.ListRunsErr
	}
	if len(p.ListRunsQueue) == 0 {
		return nil, nil
	}
	runs := p.ListRunsQueue[0]
	if len(p.ListRunsQueue) > 1 {
		p.ListRunsQueue = p.ListRunsQueue[1:]
	}
	return runs, nil
}

func (p *SpyProviderRepository) GetWorkflowRun(
	_ context.Context,
	_ entities.Repository,
	runID int64,
) (entities.WorkflowRun, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetRunCalls = append(p.GetRunCalls, runID)
	if p.GetRunErr != nil {
		return entities.WorkflowRun{}, p.GetRunErr
	}
	if len(p.GetRunQueue) == 0 {
		return entities.WorkflowRun{ID: runID}, nil
	}
	run := p.GetRunQueue[0]
	if len(p.GetRunQueue) > 1 {
		p.GetRunQueue = p.GetRunQueue[1:]
	}
	return run, nil
}

func (p *SpyProviderRepository) ListRunJobs(
	_ context.Context,
	_ entities.Repository,
	_ int64,
) ([]entities.RunJob, error) {
	return p.Jobs, p.JobsErr
}

func (p *SpyProviderRepository) ListTemplateTags(
	_ context.Context,
	_ entities.Repository,
) ([]string, error) {
	return p.Tags, p.TagsErr
}

// ListPolls returns the number of list polls, safely across goroutines.
func (p *SpyProviderRepository) ListPolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ListRunsCalls
}

// FetchedRuns returns a copy of the run ids fetched so far.
func (p *SpyProviderRepository) FetchedRuns() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.GetRunCalls...)
}

// Dispatches returns a copy of the dispatch calls received so far.
func (p *SpyProviderRepository) Dispatches() []DispatchCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]DispatchCall(nil), p.DispatchCalls...)
}
