//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/fabriko/shipwright/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// CommitRequestBuilder helps create test commit requests with a fluent interface.
type CommitRequestBuilder struct {
	*testkit.BaseBuilder
	branch  string
	message string
	files   []entities.FileChange
}

// NewCommitRequestBuilder creates a new commit request builder with sensible defaults.
func NewCommitRequestBuilder() *CommitRequestBuilder {
	return &CommitRequestBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		branch:      "main",
		message:     "Add generated infrastructure files",
		files: []entities.FileChange{
			{Path: "main.tf", Content: "resource \"null_resource\" \"demo\" {}\n"},
		},
	}
}

// WithBranch sets the target branch.
func (b *CommitRequestBuilder) WithBranch(branch string) *CommitRequestBuilder {
	b.branch = branch
	return b
}

// WithMessage sets the commit message.
func (b *CommitRequestBuilder) WithMessage(message string) *CommitRequestBuilder {
	b.message = message
	return b
}

// WithFiles replaces the file set.
func (b *CommitRequestBuilder) WithFiles(files ...entities.FileChange) *CommitRequestBuilder {
	b.files = files
	return b
}

// WithFile appends one file change.
func (b *CommitRequestBuilder) WithFile(path, content string) *CommitRequestBuilder {
	b.files = append(b.files, entities.FileChange{Path: path, Content: content})
	return b
}

// Build creates the commit request (satisfies testkit.Builder interface).
func (b *CommitRequestBuilder) Build() interface{} {
	return b.BuildCommitRequest()
}

// BuildCommitRequest creates the commit request with a concrete return type.
func (b *CommitRequestBuilder) BuildCommitRequest() entities.CommitRequest {
	return entities.CommitRequest{
		Branch:  b.branch,
		Message: b.message,
		Files:   append([]entities.FileChange(nil), b.files...),
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *CommitRequestBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.branch = "main"
	b.message = "Add generated infrastructure files"
	b.files = []entities.FileChange{
		{Path: "main.tf", Content: "resource \"null_resource\" \"demo\" {}\n"},
	}
	return b
}

// Clone creates a deep copy of the CommitRequestBuilder.
func (b *CommitRequestBuilder) Clone() testkit.Builder {
	return &CommitRequestBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		branch:      b.branch,
		message:     b.message,
		files:       append([]entities.FileChange(nil), b.files...),
	}
}
