package github

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	gh "github.com/google/go-github/v66/github"
	"golang.org/x/mod/semver"

	"github.com/fabriko/shipwright/internal/domain/entities"
	"github.com/fabriko/shipwright/internal/domain/repositories"
)

const (
	providerName = "github"
	perPage      = 100
	blobMode     = "100644"
	blobType     = "blob"

	// Every remote call rides on this transport-level timeout.
	callTimeout = 30 * time.Second
)

// GitHubProviderRepository implements repositories.ProviderRepository for
// GitHub, using the git-data API for commits and the Actions API for
// workflow dispatch and run tracking.
type GitHubProviderRepository struct {
	token  string
	client *gh.Client
}

// NewGitHubProviderRepository creates a new GitHub provider with the given token.
func NewGitHubProviderRepository(token string) repositories.ProviderRepository {
	httpClient := &http.Client{Timeout: callTimeout}
	client := gh.NewClient(httpClient).WithAuthToken(token)
	return &GitHubProviderRepository{
		token:  token,
		client: client,
	}
}

// NewWithClient wires an explicit go-github client, used by tests to point
// the provider at a local server.
func NewWithClient(client *gh.Client) repositories.ProviderRepository {
	return &GitHubProviderRepository{client: client}
}

func (p *GitHubProviderRepository) Name() string { return providerName }

func (p *GitHubProviderRepository) GetRepository(
	ctx context.Context,
	owner, name string,
) (entities.Repository, error) {
	repoData, _, err := p.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return entities.Repository{}, mapError(err, fmt.Sprintf("failed to get repository %s/%s", owner, name))
	}

	defaultBranch := repoData.GetDefaultBranch()
	if defaultBranch == "" {
		defaultBranch = "main"
	}

	return entities.Repository{
		Owner:         owner,
		Name:          repoData.GetName(),
		DefaultBranch: defaultBranch,
	}, nil
}

// CheckWriteAccess reports whether the credential can push to the
// repository. Advisory only: permissions can change between this check and
// a subsequent publish.
func (p *GitHubProviderRepository) CheckWriteAccess(
	ctx context.Context,
	repo entities.Repository,
) (bool, error) {
	repoData, _, err := p.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return false, mapError(err, fmt.Sprintf("failed to check access to %s", repo.FullName()))
	}
	return repoData.GetPermissions()["push"], nil
}

// PublishCommit builds one atomic multi-file commit on top of the branch
// head. Steps: resolve head, fetch base tree, create blobs (concurrently),
// create a layered tree, create the commit, then fast-forward the ref. Only
// the final ref update is visible; any earlier failure leaves the branch
// untouched.
func (p *GitHubProviderRepository) PublishCommit(
	ctx context.Context,
	repo entities.Repository,
	req entities.CommitRequest,
) (entities.CommitResult, error) {
	if len(req.Files) == 0 {
		// No files means no commit: an empty commit would move the ref
		// without changing the tree.
		return entities.CommitResult{}, nil
	}

	owner := repo.Owner
	repoName := repo.Name
	branch := req.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}

	// Resolve the current branch head
	refName := "refs/heads/" + strings.TrimPrefix(branch, "refs/heads/")
	baseRef, _, err := p.client.Git.GetRef(ctx, owner, repoName, refName)
	if err != nil {
		return entities.CommitResult{}, mapError(err, fmt.Sprintf("failed to get ref %s", refName))
	}
	baseSHA := baseRef.Object.GetSHA()

	// Fetch the base tree
	baseCommit, _, err := p.client.Git.GetCommit(ctx, owner, repoName, baseSHA)
	if err != nil {
		return entities.CommitResult{}, mapError(err, "failed to get base commit")
	}

	// Create one blob per file; all must succeed before proceeding
	blobSHAs, err := p.createBlobs(ctx, owner, repoName, req.Files)
	if err != nil {
		return entities.CommitResult{}, err
	}

	// Layer the new entries on top of the base tree; paths not mentioned
	// are left untouched
	entries := make([]*gh.TreeEntry, 0, len(req.Files))
	for i, change := range req.Files {
		path := strings.TrimPrefix(change.Path, "/")
		entries = append(entries, &gh.TreeEntry{
			Path: gh.String(path),
			Mode: gh.String(blobMode),
			Type: gh.String(blobType),
			SHA:  gh.String(blobSHAs[i]),
		})
	}

	newTree, _, err := p.client.Git.CreateTree(
		ctx, owner, repoName, baseCommit.Tree.GetSHA(), entries,
	)
	if err != nil {
		return entities.CommitResult{}, mapError(err, "failed to create tree")
	}

	newCommit, _, err := p.client.Git.CreateCommit(
		ctx, owner, repoName,
		&gh.Commit{
			Message: gh.String(req.Message),
			Tree:    newTree,
			Parents: []*gh.Commit{{SHA: gh.String(baseSHA)}},
		},
		nil,
	)
	if err != nil {
		return entities.CommitResult{}, mapError(err, "failed to create commit")
	}

	// Fast-forward-only update: force=false makes the API reject the update
	// if the ref moved since it was resolved above.
	_, _, err = p.client.Git.UpdateRef(
		ctx, owner, repoName,
		&gh.Reference{
			Ref:    gh.String(refName),
			Object: &gh.GitObject{SHA: newCommit.SHA},
		},
		false,
	)
	if err != nil {
		return entities.CommitResult{}, mapError(err,
			fmt.Sprintf("failed to update ref %s (the branch may have moved)", refName))
	}

	return entities.CommitResult{
		CommitSHA:  newCommit.GetSHA(),
		RefUpdated: true,
	}, nil
}

// createBlobs uploads file contents as blobs, concurrently, and verifies
// each returned object id against a locally computed git blob hash.
func (p *GitHubProviderRepository) createBlobs(
	ctx context.Context,
	owner, repoName string,
	files []entities.FileChange,
) ([]string, error) {
	shas := make([]string, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, change := range files {
		wg.Add(1)
		go func(idx int, file entities.FileChange) {
			defer wg.Done()
			shas[idx], errs[idx] = p.createBlob(ctx, owner, repoName, file)
		}(i, change)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return shas, nil
}

func (p *GitHubProviderRepository) createBlob(
	ctx context.Context,
	owner, repoName string,
	file entities.FileChange,
) (string, error) {
	blob, _, err := p.client.Git.CreateBlob(ctx, owner, repoName, &gh.Blob{
		Content:  gh.String(entities.EncodeContent(file.Content)),
		Encoding: gh.String("base64"),
	})
	if err != nil {
		return "", mapError(err, fmt.Sprintf("failed to create blob for %q", file.Path))
	}

	// Cross-check against the hash git itself would assign to this content;
	// a mismatch means the content was corrupted in transit.
	want := plumbing.ComputeHash(plumbing.BlobObject, []byte(file.Content)).String()
	if got := blob.GetSHA(); got != want {
		return "", entities.NewError(entities.ErrDispatchRejected,
			fmt.Sprintf("blob for %q has object id %s, want %s", file.Path, got, want))
	}

	return blob.GetSHA(), nil
}

// DispatchWorkflow triggers the named workflow. Typed inputs are
// stringified here and nowhere earlier.
func (p *GitHubProviderRepository) DispatchWorkflow(
	ctx context.Context,
	repo entities.Repository,
	workflowFile, ref string,
	inputs entities.WorkflowInputs,
) error {
	values, err := inputs.StringValues()
	if err != nil {
		return err
	}

	rawInputs := make(map[string]interface{}, len(values))
	for key, val := range values {
		rawInputs[key] = val
	}

	if ref == "" {
		ref = repo.DefaultBranch
	}

	_, err = p.client.Actions.CreateWorkflowDispatchEventByFileName(
		ctx, repo.Owner, repo.Name, workflowFile,
		gh.CreateWorkflowDispatchEventRequest{
			Ref:    ref,
			Inputs: rawInputs,
		},
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("failed to dispatch workflow %s", workflowFile))
	}
	return nil
}

// ListWorkflowRuns returns the workflow's most recent runs, newest first.
func (p *GitHubProviderRepository) ListWorkflowRuns(
	ctx context.Context,
	repo entities.Repository,
	workflowFile string,
	limit int,
) ([]entities.WorkflowRun, error) {
	if limit <= 0 || limit > perPage {
		limit = perPage
	}

	runs, _, err := p.client.Actions.ListWorkflowRunsByFileName(
		ctx, repo.Owner, repo.Name, workflowFile,
		&gh.ListWorkflowRunsOptions{
			ListOptions: gh.ListOptions{PerPage: limit},
		},
	)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to list runs of %s", workflowFile))
	}

	result := make([]entities.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		result = append(result, toWorkflowRun(run))
	}
	return result, nil
}

func (p *GitHubProviderRepository) GetWorkflowRun(
	ctx context.Context,
	repo entities.Repository,
	runID int64,
) (entities.WorkflowRun, error) {
	run, _, err := p.client.Actions.GetWorkflowRunByID(ctx, repo.Owner, repo.Name, runID)
	if err != nil {
		return entities.WorkflowRun{}, mapError(err, fmt.Sprintf("failed to get run #%d", runID))
	}
	return toWorkflowRun(run), nil
}

func (p *GitHubProviderRepository) ListRunJobs(
	ctx context.Context,
	repo entities.Repository,
	runID int64,
) ([]entities.RunJob, error) {
	jobs, _, err := p.client.Actions.ListWorkflowJobs(
		ctx, repo.Owner, repo.Name, runID,
		&gh.ListWorkflowJobsOptions{},
	)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to list jobs of run #%d", runID))
	}

	result := make([]entities.RunJob, 0, len(jobs.Jobs))
	for _, job := range jobs.Jobs {
		result = append(result, entities.RunJob{
			Name:       job.GetName(),
			Status:     entities.RunStatus(job.GetStatus()),
			Conclusion: entities.RunConclusion(job.GetConclusion()),
		})
	}
	return result, nil
}

// ListTemplateTags lists the repository's tags sorted newest first, so a
// wizard can offer a template version picker.
func (p *GitHubProviderRepository) ListTemplateTags(
	ctx context.Context,
	repo entities.Repository,
) ([]string, error) {
	var allTags []string
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		tags, resp, err := p.client.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, mapError(err, fmt.Sprintf("failed to list tags of %s", repo.FullName()))
		}

		for _, tag := range tags {
			allTags = append(allTags, tag.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sortVersionsDescending(allTags)
	return allTags, nil
}

func toWorkflowRun(run *gh.WorkflowRun) entities.WorkflowRun {
	return entities.WorkflowRun{
		ID:         run.GetID(),
		Status:     entities.RunStatus(run.GetStatus()),
		Conclusion: entities.RunConclusion(run.GetConclusion()),
		URL:        run.GetHTMLURL(),
		CreatedAt:  run.GetCreatedAt().Time,
		UpdatedAt:  run.GetUpdatedAt().Time,
	}
}

// --- version sorting ---

func sortVersionsDescending(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		v1 := normalizeVersion(versions[i])
		v2 := normalizeVersion(versions[j])
		if semver.IsValid(v1) && semver.IsValid(v2) {
			return semver.Compare(v1, v2) > 0
		}
		return versions[i] > versions[j]
	})
}

func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
