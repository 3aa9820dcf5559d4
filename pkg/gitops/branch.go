package gitops

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// BranchSource records where a branch name came from. Branches are only
// created when the name came from explicit task text; a classifier guess is
// never allowed to silently create branches.
type BranchSource string

const (
	BranchSourceTask       BranchSource = "task"
	BranchSourceClassifier BranchSource = "classifier"
	BranchSourceDefault    BranchSource = "default"
)

// BranchPlan is the resolved target branch for a development phase.
type BranchPlan struct {
	Name   string
	Source BranchSource
}

// ResolveBranch picks the working branch: an explicit name from the task
// text wins, then a classifier hint, then the most recently committed of
// main/master.
func (r *Reconciler) ResolveBranch(dir, explicit, hint string) (*BranchPlan, error) {
	if explicit != "" {
		return &BranchPlan{Name: explicit, Source: BranchSourceTask}, nil
	}

	if hint != "" {
		return &BranchPlan{Name: hint, Source: BranchSourceClassifier}, nil
	}

	name, err := r.defaultBranch(dir)
	if err != nil {
		return nil, err
	}

	return &BranchPlan{Name: name, Source: BranchSourceDefault}, nil
}

// Checkout switches to the planned branch, creating it from the current
// HEAD only when the name came from explicit task text.
func (r *Reconciler) Checkout(dir string, plan *BranchPlan) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	branchRef := plumbing.NewBranchReferenceName(plan.Name)

	_, err = repo.Reference(branchRef, true)
	exists := err == nil

	if !exists && plan.Source != BranchSourceTask {
		return fmt.Errorf("branch %q does not exist and was not explicitly requested", plan.Name)
	}

	checkoutErr := worktree.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Create: !exists,
	})
	if checkoutErr != nil {
		return fmt.Errorf("checkout %s: %w", plan.Name, checkoutErr)
	}

	r.logger.Info("Checked out branch",
		"branch", plan.Name, "source", plan.Source, "created", !exists)

	return nil
}

// defaultBranch returns the most recently committed of main/master.
func (r *Reconciler) defaultBranch(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}

	var (
		best     string
		bestTime int64
	)

	for _, candidate := range []string{"main", "master"} {
		ref, refErr := repo.Reference(plumbing.NewBranchReferenceName(candidate), true)
		if refErr != nil {
			if errors.Is(refErr, plumbing.ErrReferenceNotFound) {
				continue
			}

			return "", refErr
		}

		commit, commitErr := repo.CommitObject(ref.Hash())
		if commitErr != nil {
			continue
		}

		when := commit.Committer.When.Unix()
		if best == "" || when > bestTime {
			best = candidate
			bestTime = when
		}
	}

	if best == "" {
		return "", errors.New("no main or master branch found")
	}

	return best, nil
}
