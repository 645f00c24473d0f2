package scope

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joescharf/cr/internal/git"
)

// Kind identifies what a review target contains.
type Kind string

const (
	KindSingleFile      Kind = "single-file"
	KindStagedDiff      Kind = "staged"
	KindCommitRangeDiff Kind = "since-commit"
)

var (
	// ErrNoChanges indicates there is nothing reviewable in the repository.
	ErrNoChanges = errors.New("no reviewable changes found")

	// ErrUnsupportedFileType indicates a file extension outside the supported set.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// Target is the resolved content a review run operates on.
type Target struct {
	Kind    Kind
	Label   string
	Content string
	Files   []string

	lines int
}

// NewTarget builds a target, computing its non-empty line count once up front.
func NewTarget(kind Kind, label, content string, files []string) *Target {
	return &Target{
		Kind:    kind,
		Label:   label,
		Content: content,
		Files:   files,
		lines:   CountLines(content),
	}
}

// Lines returns the cached non-empty line count of the target content.
func (t *Target) Lines() int { return t.lines }

// CountLines counts lines that still have content after trimming whitespace.
func CountLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Resolver determines reviewable content from a path argument or the
// repository state.
type Resolver struct {
	git          git.Client
	extensions   map[string]bool
	contextLines int
}

// NewResolver creates a resolver. Extensions may be given with or without a
// leading dot; matching is case-insensitive.
func NewResolver(g git.Client, extensions []string, contextLines int) *Resolver {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return &Resolver{git: g, extensions: exts, contextLines: contextLines}
}

// File resolves a single file into a review target.
func (r *Resolver) File(path string) (*Target, error) {
	if !r.supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	return NewTarget(KindSingleFile, path, content, []string{path}), nil
}

// Staged resolves the staged diff (index vs. HEAD) into a review target.
func (r *Resolver) Staged(path string) (*Target, error) {
	root, err := r.git.RepoRoot(path)
	if err != nil {
		return nil, err
	}

	files, err := r.git.StagedFiles(root)
	if err != nil {
		return nil, err
	}
	files = r.filterSupported(files)
	if len(files) == 0 {
		return nil, ErrNoChanges
	}

	diff, err := r.git.StagedDiff(root, r.contextLines, files)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(diff) == "" {
		return nil, ErrNoChanges
	}

	return NewTarget(KindStagedDiff, "staged changes", diff, files), nil
}

// SinceCommit resolves the diff between a ref and the working tree into a
// review target.
func (r *Resolver) SinceCommit(path, ref string) (*Target, error) {
	root, err := r.git.RepoRoot(path)
	if err != nil {
		return nil, err
	}

	hash, err := r.git.ResolveCommit(root, ref)
	if err != nil {
		return nil, err
	}

	files, err := r.git.ChangedFilesSince(root, hash)
	if err != nil {
		return nil, err
	}
	files = r.filterSupported(files)
	if len(files) == 0 {
		return nil, ErrNoChanges
	}

	diff, err := r.git.DiffSince(root, r.contextLines, hash, files)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(diff) == "" {
		return nil, ErrNoChanges
	}

	label := fmt.Sprintf("changes since %s", shortHash(hash))
	return NewTarget(KindCommitRangeDiff, label, diff, files), nil
}

// SinceTime resolves changes since a point in time. When no commit exists at
// or before that time, the staged diff is reviewed instead.
func (r *Resolver) SinceTime(path string, at time.Time) (*Target, error) {
	root, err := r.git.RepoRoot(path)
	if err != nil {
		return nil, err
	}

	hash, err := r.git.CommitBefore(root, at)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		return r.Staged(path)
	}
	return r.SinceCommit(path, hash)
}

func (r *Resolver) supported(path string) bool {
	return r.extensions[strings.ToLower(filepath.Ext(path))]
}

func (r *Resolver) filterSupported(files []string) []string {
	var kept []string
	for _, f := range files {
		if r.supported(f) {
			kept = append(kept, f)
		}
	}
	return kept
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
