package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	logger "github.com/sirupsen/logrus"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/internal/domain/repositories"
)

const (
	// pollRetryAttempts bounds the silent retries of one network call
	// inside a single poll tick. Publish-path calls are never retried.
	pollRetryAttempts = 3

	// maxFailedTicks is the number of consecutive failed ticks after which
	// the operation transitions to error.
	maxFailedTicks = 5

	// adoptionClockSkew widens the "created after dispatch" window when
	// correlating a dispatch with its run, to tolerate clock drift between
	// this process and the remote API.
	adoptionClockSkew = time.Minute

	// discoveryRunLimit is how many recent runs are listed per discovery poll.
	discoveryRunLimit = 10
)

// trackerSink receives the tracker's observations. Every call carries the
// generation the tracker was started with; the sink must discard results
// whose generation no longer matches its current target, so a poll that was
// in flight during a reset cannot apply a stale update.
type trackerSink interface {
	AdoptRun(generation uint64, run entities.WorkflowRun)
	UpdateRun(generation uint64, run entities.WorkflowRun)
	AppendLog(generation uint64, line string)
	Complete(generation uint64, status entities.OperationStatus, line string)
}

// RunTracker polls one workflow run to a terminal state. Ticks are strictly
// serialized: a new poll is only issued after the previous one resolved.
//
// Until a run id is adopted the tracker is in its discovery phase: the
// dispatch API gives no run id back, and the triggered run only appears in
// the run list after a short delay. The newest run created at or after
// dispatch time is adopted as a heuristic proxy for "the run we triggered".
// Under concurrent triggers against the same workflow this correlation has
// no deterministic guarantee; the remote API offers no idempotency marker
// to do better.
type RunTracker struct {
	provider     repositories.ProviderRepository
	repo         entities.Repository
	workflowFile string
	action       entities.Action
	generation   uint64
	sink         trackerSink

	interval    time.Duration
	callTimeout time.Duration

	dispatchedAt time.Time
	runID        int64
	failedTicks  int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunTracker creates a tracker for one dispatched workflow.
func NewRunTracker(
	provider repositories.ProviderRepository,
	repo entities.Repository,
	workflowFile string,
	action entities.Action,
	generation uint64,
	sink trackerSink,
	polling entities.PollingConfig,
) *RunTracker {
	return &RunTracker{
		provider:     provider,
		repo:         repo,
		workflowFile: workflowFile,
		action:       action,
		generation:   generation,
		sink:         sink,
		interval:     polling.Interval(),
		callTimeout:  polling.CallTimeout(),
		dispatchedAt: time.Now(),
		done:         make(chan struct{}),
	}
}

// AdoptExisting binds the tracker to an already-known run id, skipping the
// discovery phase. Used when watching a run that was triggered elsewhere.
func (t *RunTracker) AdoptExisting(runID int64) {
	t.runID = runID
}

// Start launches the poll loop. It returns immediately.
func (t *RunTracker) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	go t.loop(ctx)
}

// Stop cancels the scheduled next tick and waits for the loop to exit. Any
// network call already in flight has its result discarded by the sink's
// generation guard.
func (t *RunTracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	<-t.done
}

// Done is closed when the loop has exited.
func (t *RunTracker) Done() <-chan struct{} { return t.done }

func (t *RunTracker) loop(ctx context.Context) {
	defer close(t.done)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if terminal := t.tick(ctx); terminal {
			return
		}
		timer.Reset(t.interval)
	}
}

// tick performs one poll. It returns true once the operation reached a
// terminal state and polling must stop.
func (t *RunTracker) tick(ctx context.Context) bool {
	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	defer cancel()

	var (
		run   entities.WorkflowRun
		found bool
		err   error
	)
	if t.runID == 0 {
		run, found, err = t.discover(callCtx)
	} else {
		run, err = t.observe(callCtx)
		found = err == nil
	}

	if ctx.Err() != nil {
		// Cancelled while the call was in flight; discard the result.
		return true
	}

	if err != nil {
		return t.recordFailure(err)
	}
	t.failedTicks = 0

	if !found {
		t.sink.AppendLog(t.generation,
			fmt.Sprintf("waiting for %s run to appear", t.action))
		return false
	}

	return t.apply(run)
}

// discover lists the most recent runs of the workflow and adopts the newest
// one created at or after dispatch time.
func (t *RunTracker) discover(ctx context.Context) (entities.WorkflowRun, bool, error) {
	var runs []entities.WorkflowRun
	err := t.withRetry(ctx, func() error {
		var listErr error
		runs, listErr = t.provider.ListWorkflowRuns(ctx, t.repo, t.workflowFile, discoveryRunLimit)
		return listErr
	})
	if err != nil {
		return entities.WorkflowRun{}, false, err
	}

	cutoff := t.dispatchedAt.Add(-adoptionClockSkew)
	for _, run := range runs {
		if run.CreatedAt.Before(cutoff) {
			continue
		}
		t.runID = run.ID
		t.sink.AdoptRun(t.generation, run)
		logger.Debugf("[%s] Adopted run #%d for workflow %s", t.action, run.ID, t.workflowFile)
		return run, true, nil
	}

	return entities.WorkflowRun{}, false, nil
}

// observe fetches the adopted run by id.
func (t *RunTracker) observe(ctx context.Context) (entities.WorkflowRun, error) {
	var run entities.WorkflowRun
	err := t.withRetry(ctx, func() error {
		var getErr error
		run, getErr = t.provider.GetWorkflowRun(ctx, t.repo, t.runID)
		return getErr
	})
	return run, err
}

// apply pushes the observed run into the sink and emits at most one log
// line per distinct status transition (the sink suppresses duplicates).
func (t *RunTracker) apply(run entities.WorkflowRun) bool {
	t.sink.UpdateRun(t.generation, run)

	switch entities.TrackStateFor(run.Status) {
	case entities.TrackQueued:
		t.sink.AppendLog(t.generation,
			fmt.Sprintf("%s run #%d is queued", t.action, run.ID))
	case entities.TrackInProgress:
		t.sink.AppendLog(t.generation,
			fmt.Sprintf("%s run #%d is in progress", t.action, run.ID))
	case entities.TrackCompleted:
		t.complete(run)
		return true
	case entities.TrackNotStarted, entities.TrackDiscovering:
		// Unreachable once a run is adopted.
	}
	return false
}

func (t *RunTracker) complete(run entities.WorkflowRun) {
	if run.Succeeded() {
		t.sink.Complete(t.generation, entities.StatusSuccess,
			fmt.Sprintf("%s succeeded (run #%d)", t.action, run.ID))
		return
	}

	conclusion := run.Conclusion
	if conclusion == entities.ConclusionNone {
		conclusion = "null"
	}

	line := fmt.Sprintf("%s failed (conclusion: %s)", t.action, conclusion)
	if failing := t.failingJobs(run.ID); failing != "" {
		line += fmt.Sprintf(", failing jobs: %s", failing)
	}
	if run.URL != "" {
		line += fmt.Sprintf(", logs: %s", run.URL)
	}
	t.sink.Complete(t.generation, entities.StatusError, line)
}

// failingJobs fetches job-level diagnostics, best effort.
func (t *RunTracker) failingJobs(runID int64) string {
	ctx, cancel := context.WithTimeout(context.Background(), t.callTimeout)
	defer cancel()

	jobs, err := t.provider.ListRunJobs(ctx, t.repo, runID)
	if err != nil {
		logger.Debugf("[%s] Could not fetch jobs for run #%d: %v", t.action, runID, err)
		return ""
	}

	var names []string
	for _, job := range jobs {
		if job.Conclusion != entities.ConclusionSuccess && job.Conclusion != entities.ConclusionNone {
			names = append(names, job.Name)
		}
	}
	return strings.Join(names, ", ")
}

// recordFailure handles a failed tick. Transient errors are tolerated up to
// maxFailedTicks consecutive ticks; anything else ends the operation now.
func (t *RunTracker) recordFailure(err error) bool {
	kind := entities.KindOf(err)
	if kind != entities.ErrPollingTransient && kind != entities.ErrRateLimited {
		t.sink.Complete(t.generation, entities.StatusError,
			fmt.Sprintf("%s failed: %v", t.action, err))
		return true
	}

	t.failedTicks++
	logger.Warnf("[%s] Poll failed (%d/%d): %v", t.action, t.failedTicks, maxFailedTicks, err)
	if t.failedTicks >= maxFailedTicks {
		t.sink.Complete(t.generation, entities.StatusError,
			fmt.Sprintf("%s failed: polling gave up after %d attempts: %v",
				t.action, t.failedTicks, err))
		return true
	}
	return false
}

// withRetry runs one network call with a small bounded retry for transient
// errors. Non-transient errors are returned immediately.
func (t *RunTracker) withRetry(ctx context.Context, call func() error) error {
	//nolint:wrapcheck // the caller wraps with operation context
	return retry.Do(call,
		retry.Context(ctx),
		retry.Attempts(pollRetryAttempts),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			kind := entities.KindOf(err)
			return kind == entities.ErrPollingTransient || kind == entities.ErrRateLimited
		}),
	)
}
