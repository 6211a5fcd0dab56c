package entities

// FileChange represents one generated file to include in a commit.
// Path is repo-relative with forward slashes; Content is UTF-8 text.
type FileChange struct {
	Path    string
	Content string
}

// CommitRequest is the unit of atomic publish: all files land in a single
// commit layered on top of the branch head, or the branch is left untouched.
type CommitRequest struct {
	Branch  string // Empty means the repository default branch
	Message string
	Files   []FileChange
}

// CommitResult reports the outcome of a publish.
type CommitResult struct {
	CommitSHA  string
	RefUpdated bool
}
