package gitops

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	commitAuthorName  = "ranger"
	commitAuthorEmail = "ranger@localhost"

	// maxListedPaths bounds the path list in commit messages.
	maxListedPaths = 10
)

// CommitResult distinguishes "nothing to commit" from a real failure:
// the former is a valid outcome with Committed false and a Reason.
type CommitResult struct {
	Committed  bool
	CommitHash string
	Reason     string
}

// AutoCommit stages exactly the delta paths and commits them with a
// message tying the commit back to the task and execution.
func (r *Reconciler) AutoCommit(dir string, delta Delta, taskID, executionID string) (*CommitResult, error) {
	if delta.Empty() {
		return &CommitResult{Committed: false, Reason: "nothing to commit"}, nil
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	staged := 0

	for _, path := range delta.Paths() {
		if _, addErr := worktree.Add(path); addErr != nil {
			// A path may have vanished between snapshot and commit.
			r.logger.Warn("Could not stage path", "path", path, "error", addErr)

			continue
		}

		staged++
	}

	if staged == 0 {
		return &CommitResult{Committed: false, Reason: "nothing to commit"}, nil
	}

	hash, err := worktree.Commit(commitMessage(delta, taskID, executionID), &git.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("Auto-committed development changes",
		"task_id", taskID, "execution_id", executionID,
		"commit", hash.String(), "files", staged)

	return &CommitResult{Committed: true, CommitHash: hash.String()}, nil
}

func commitMessage(delta Delta, taskID, executionID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Apply changes for task %s\n\n", taskID)
	fmt.Fprintf(&b, "Execution: %s\n", executionID)

	paths := delta.Paths()

	b.WriteString("Files:\n")

	for i, path := range paths {
		if i == maxListedPaths {
			fmt.Fprintf(&b, "- and %d more\n", len(paths)-maxListedPaths)

			break
		}

		fmt.Fprintf(&b, "- %s\n", path)
	}

	return b.String()
}
