package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotARepo indicates the path is not inside a git repository.
	ErrNotARepo = errors.New("not in a git repository")

	// ErrCommitNotFound indicates a ref did not resolve to a commit.
	ErrCommitNotFound = errors.New("commit not found")
)

// Client defines the interface for the git queries a review run needs.
// All methods take a path parameter so tests can run against throwaway repos.
type Client interface {
	RepoRoot(path string) (string, error)
	StagedFiles(path string) ([]string, error)
	StagedDiff(path string, contextLines int, files []string) (string, error)
	ChangedFilesSince(path, ref string) ([]string, error)
	DiffSince(path string, contextLines int, ref string, files []string) (string, error)
	ResolveCommit(path, ref string) (string, error)
	CommitBefore(path string, at time.Time) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RepoRoot returns the top-level directory of the repository containing path.
func (c *RealClient) RepoRoot(path string) (string, error) {
	out, err := gitCmd(path, "rev-parse", "--show-toplevel")
	if err != nil {
		if strings.Contains(err.Error(), "not a git repository") {
			return "", ErrNotARepo
		}
		return "", err
	}
	return out, nil
}

// StagedFiles lists files staged in the index, excluding deletions.
// Git emits the paths in sorted order, which keeps review content stable
// across runs against the same index state.
func (c *RealClient) StagedFiles(path string) ([]string, error) {
	out, err := gitCmd(path, "diff", "--cached", "--name-only", "--diff-filter=d")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// StagedDiff returns the staged diff restricted to the given files.
func (c *RealClient) StagedDiff(path string, contextLines int, files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	args := append([]string{"diff", "--cached", fmt.Sprintf("-U%d", contextLines), "--"}, files...)
	return gitCmd(path, args...)
}

// ChangedFilesSince lists files changed between ref and the working tree,
// excluding deletions.
func (c *RealClient) ChangedFilesSince(path, ref string) ([]string, error) {
	out, err := gitCmd(path, "diff", "--name-only", "--diff-filter=d", ref)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DiffSince returns the diff between ref and the working tree restricted to
// the given files.
func (c *RealClient) DiffSince(path string, contextLines int, ref string, files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}
	args := append([]string{"diff", fmt.Sprintf("-U%d", contextLines), ref, "--"}, files...)
	return gitCmd(path, args...)
}

// ResolveCommit resolves a ref to a full commit hash.
func (c *RealClient) ResolveCommit(path, ref string) (string, error) {
	out, err := gitCmd(path, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCommitNotFound, ref)
	}
	return out, nil
}

// CommitBefore returns the most recent commit at or before the given time,
// or an empty string when no commit exists that early.
func (c *RealClient) CommitBefore(path string, at time.Time) (string, error) {
	out, err := gitCmd(path, "rev-list", "-n", "1", "--before="+at.Format("2006-01-02 15:04:05"), "HEAD")
	if err != nil {
		return "", err
	}
	return out, nil
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
