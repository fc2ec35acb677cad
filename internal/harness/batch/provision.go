package batch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/agent-verify/harness/internal/harness/benchmark"
)

// Provisioner prepares a task's workspace before the scheduler runs against
// it. Repo clone/checkout is named an out-of-core-scope external
// collaborator by §1 — this is the thin interface boundary the batch
// runner calls through; GitProvisioner below is one concrete, minimal
// implementation of it, not the provisioning pipeline itself.
type Provisioner interface {
	Provision(ctx context.Context, task benchmark.Task) (workspaceDir string, err error)
}

// GitProvisioner checks out task.Repo at task.BaseCommit into a per-task
// directory under Root via a plain `git clone` + `git checkout`.
type GitProvisioner struct {
	Root string
}

func (p GitProvisioner) Provision(ctx context.Context, task benchmark.Task) (string, error) {
	if task.Repo == "" {
		// Ad-hoc tasks (no origin repo) just get an empty scratch directory.
		dir := filepath.Join(p.Root, task.TaskID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create workspace: %w", err)
		}
		return dir, nil
	}

	dir := filepath.Join(p.Root, task.TaskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}

	clone := exec.CommandContext(ctx, "git", "clone", task.Repo, dir)
	if out, err := clone.CombinedOutput(); err != nil {
		return "", fmt.Errorf("clone %s: %w: %s", task.Repo, err, out)
	}

	if task.BaseCommit != "" {
		checkout := exec.CommandContext(ctx, "git", "-C", dir, "checkout", task.BaseCommit)
		if out, err := checkout.CombinedOutput(); err != nil {
			return "", fmt.Errorf("checkout %s: %w: %s", task.BaseCommit, err, out)
		}
	}
	return dir, nil
}
