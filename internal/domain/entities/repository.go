package entities

import "fmt"

// Repository identifies a remote repository the wizard publishes into.
type Repository struct {
	Owner         string // Organization or user account
	Name          string // Repository name
	DefaultBranch string // Branch name without the refs/heads/ prefix
}

// FullName returns the owner/name form used in log output.
func (r Repository) FullName() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}
