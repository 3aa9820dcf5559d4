// Package gitops reconciles repository state around development phases.
// File deltas are computed from git status snapshots, never from what the
// agent process self-reports.
package gitops

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Snapshot captures repository state at one point in time.
type Snapshot struct {
	IsRepo     bool     `json:"is_repo"`
	HeadCommit string   `json:"head_commit,omitempty"`
	Staged     []string `json:"staged,omitempty"`
	Unstaged   []string `json:"unstaged,omitempty"`
	Untracked  []string `json:"untracked,omitempty"`
}

// Delta is the authoritative file-level outcome of a development phase,
// computed by diffing two snapshots.
type Delta struct {
	Created  []string `json:"created,omitempty"`
	Modified []string `json:"modified,omitempty"`
}

func (d Delta) Empty() bool {
	return len(d.Created) == 0 && len(d.Modified) == 0
}

// Paths returns all delta paths, created first, each set sorted.
func (d Delta) Paths() []string {
	paths := make([]string, 0, len(d.Created)+len(d.Modified))
	paths = append(paths, d.Created...)
	paths = append(paths, d.Modified...)

	return paths
}

type Reconciler struct {
	logger *slog.Logger
}

func NewReconciler(logger *slog.Logger) *Reconciler {
	return &Reconciler{logger: logger.With("module", "gitops")}
}

// Snapshot captures the current state of dir. A directory that is not a
// git repository degrades to a recursive file listing in Untracked.
func (r *Reconciler) Snapshot(dir string) (*Snapshot, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			files, listErr := listFiles(dir)
			if listErr != nil {
				return nil, listErr
			}

			return &Snapshot{IsRepo: false, Untracked: files}, nil
		}

		return nil, err
	}

	snapshot := &Snapshot{IsRepo: true}

	head, err := repo.Head()
	if err == nil {
		snapshot.HeadCommit = head.Hash().String()
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, err
	}

	for path, fileStatus := range status {
		switch {
		case fileStatus.Worktree == git.Untracked:
			snapshot.Untracked = append(snapshot.Untracked, path)
		case fileStatus.Staging != git.Unmodified && fileStatus.Staging != git.Untracked:
			snapshot.Staged = append(snapshot.Staged, path)

			if fileStatus.Worktree == git.Modified {
				snapshot.Unstaged = append(snapshot.Unstaged, path)
			}
		case fileStatus.Worktree == git.Modified:
			snapshot.Unstaged = append(snapshot.Unstaged, path)
		}
	}

	sort.Strings(snapshot.Staged)
	sort.Strings(snapshot.Unstaged)
	sort.Strings(snapshot.Untracked)

	return snapshot, nil
}

// ComputeDelta diffs two snapshots: newly untracked files are created;
// newly modified or staged files that are not newly untracked are modified.
func ComputeDelta(before, after *Snapshot) Delta {
	created := subtract(after.Untracked, before.Untracked)

	createdSet := make(map[string]struct{}, len(created))
	for _, path := range created {
		createdSet[path] = struct{}{}
	}

	changed := append(
		subtract(after.Unstaged, before.Unstaged),
		subtract(after.Staged, before.Staged)...)

	modified := make([]string, 0, len(changed))
	seen := make(map[string]struct{}, len(changed))

	for _, path := range changed {
		if _, isCreated := createdSet[path]; isCreated {
			continue
		}

		if _, dup := seen[path]; dup {
			continue
		}

		seen[path] = struct{}{}
		modified = append(modified, path)
	}

	sort.Strings(created)
	sort.Strings(modified)

	return Delta{Created: created, Modified: modified}
}

func subtract(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, item := range b {
		exclude[item] = struct{}{}
	}

	var result []string

	for _, item := range a {
		if _, ok := exclude[item]; !ok {
			result = append(result, item)
		}
	}

	return result
}

func listFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" || strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}

			return nil
		}

		relative, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}

		files = append(files, relative)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}
