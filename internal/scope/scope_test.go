package scope

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cr/internal/git"
)

// fakeGit implements git.Client with canned responses and records the file
// lists passed to diff calls.
type fakeGit struct {
	root        string
	rootErr     error
	staged      []string
	stagedErr   error
	stagedDiff  string
	changed     []string
	diffSince   string
	resolveHash string
	resolveErr  error
	before      string
	beforeErr   error

	stagedDiffFiles []string
	diffSinceFiles  []string
}

func (f *fakeGit) RepoRoot(path string) (string, error) {
	if f.rootErr != nil {
		return "", f.rootErr
	}
	if f.root != "" {
		return f.root, nil
	}
	return path, nil
}

func (f *fakeGit) StagedFiles(path string) ([]string, error) {
	return f.staged, f.stagedErr
}

func (f *fakeGit) StagedDiff(path string, contextLines int, files []string) (string, error) {
	f.stagedDiffFiles = files
	return f.stagedDiff, nil
}

func (f *fakeGit) ChangedFilesSince(path, ref string) ([]string, error) {
	return f.changed, nil
}

func (f *fakeGit) DiffSince(path string, contextLines int, ref string, files []string) (string, error) {
	f.diffSinceFiles = files
	return f.diffSince, nil
}

func (f *fakeGit) ResolveCommit(path, ref string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if f.resolveHash != "" {
		return f.resolveHash, nil
	}
	return ref, nil
}

func (f *fakeGit) CommitBefore(path string, at time.Time) (string, error) {
	return f.before, f.beforeErr
}

var testExtensions = []string{".go", ".py", ".php", ".js", ".ts"}

func newTestResolver(g git.Client) *Resolver {
	return NewResolver(g, testExtensions, 3)
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t\n   \n", 0},
		{"plain", "a\nb\nc", 3},
		{"blank lines between", "a\n\nb\n\n\nc\n", 3},
		{"comment lines count", "// a comment\ncode()\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountLines(tt.content))
		})
	}
}

func TestNewTarget_CachesLineCount(t *testing.T) {
	target := NewTarget(KindSingleFile, "x.go", "a\n\nb\n", []string{"x.go"})
	assert.Equal(t, 2, target.Lines())
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.go")
	content := "package web\n\nfunc Handler() {}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r := newTestResolver(&fakeGit{})
	target, err := r.File(path)
	require.NoError(t, err)

	assert.Equal(t, KindSingleFile, target.Kind)
	assert.Equal(t, path, target.Label)
	assert.Equal(t, content, target.Content)
	assert.Equal(t, []string{path}, target.Files)
	assert.Equal(t, 3, target.Lines())
}

func TestFile_UnsupportedExtension(t *testing.T) {
	r := newTestResolver(&fakeGit{})
	_, err := r.File("script.rb")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestFile_Missing(t *testing.T) {
	r := newTestResolver(&fakeGit{})
	_, err := r.File(filepath.Join(t.TempDir(), "nope.go"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.go")
	require.NoError(t, os.WriteFile(path, []byte("  \n\n\t\n"), 0644))

	r := newTestResolver(&fakeGit{})
	_, err := r.File(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFile_ExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Legacy.PHP")
	require.NoError(t, os.WriteFile(path, []byte("<?php\n"), 0644))

	r := newTestResolver(&fakeGit{})
	_, err := r.File(path)
	assert.NoError(t, err)
}

func TestStaged(t *testing.T) {
	g := &fakeGit{
		staged:     []string{"a.go", "b.go"},
		stagedDiff: "diff --git a/a.go b/a.go\n+new line\n",
	}
	r := newTestResolver(g)

	target, err := r.Staged(".")
	require.NoError(t, err)

	assert.Equal(t, KindStagedDiff, target.Kind)
	assert.Equal(t, "staged changes", target.Label)
	assert.Equal(t, []string{"a.go", "b.go"}, target.Files)
	assert.Contains(t, target.Content, "+new line")
}

func TestStaged_NoFiles(t *testing.T) {
	r := newTestResolver(&fakeGit{})
	_, err := r.Staged(".")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestStaged_FiltersUnsupportedFiles(t *testing.T) {
	g := &fakeGit{
		staged:     []string{"a.go", "notes.txt", "b.py"},
		stagedDiff: "diff content\n",
	}
	r := newTestResolver(g)

	target, err := r.Staged(".")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.py"}, target.Files)
	assert.Equal(t, []string{"a.go", "b.py"}, g.stagedDiffFiles)
}

func TestStaged_OnlyUnsupportedFiles(t *testing.T) {
	g := &fakeGit{staged: []string{"README.md", "notes.txt"}}
	r := newTestResolver(g)

	_, err := r.Staged(".")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestStaged_EmptyDiff(t *testing.T) {
	g := &fakeGit{staged: []string{"a.go"}, stagedDiff: "   \n"}
	r := newTestResolver(g)

	_, err := r.Staged(".")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestStaged_NotARepo(t *testing.T) {
	g := &fakeGit{rootErr: git.ErrNotARepo}
	r := newTestResolver(g)

	_, err := r.Staged(".")
	assert.ErrorIs(t, err, git.ErrNotARepo)
}

func TestSinceCommit(t *testing.T) {
	g := &fakeGit{
		resolveHash: "abcdef1234567890abcdef1234567890abcdef12",
		changed:     []string{"x.go"},
		diffSince:   "diff --git a/x.go b/x.go\n+change\n",
	}
	r := newTestResolver(g)

	target, err := r.SinceCommit(".", "main")
	require.NoError(t, err)

	assert.Equal(t, KindCommitRangeDiff, target.Kind)
	assert.Equal(t, "changes since abcdef12", target.Label)
	assert.Equal(t, []string{"x.go"}, target.Files)
	assert.Equal(t, []string{"x.go"}, g.diffSinceFiles)
}

func TestSinceCommit_BadRef(t *testing.T) {
	g := &fakeGit{resolveErr: git.ErrCommitNotFound}
	r := newTestResolver(g)

	_, err := r.SinceCommit(".", "badref")
	assert.ErrorIs(t, err, git.ErrCommitNotFound)
}

func TestSinceCommit_NoChanges(t *testing.T) {
	g := &fakeGit{resolveHash: "abc123"}
	r := newTestResolver(g)

	_, err := r.SinceCommit(".", "HEAD~3")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestSinceTime_UsesCommit(t *testing.T) {
	g := &fakeGit{
		before:    "abcdef1234567890abcdef1234567890abcdef12",
		changed:   []string{"x.go"},
		diffSince: "+change\n",
	}
	r := newTestResolver(g)

	target, err := r.SinceTime(".", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, KindCommitRangeDiff, target.Kind)
}

func TestSinceTime_FallsBackToStaged(t *testing.T) {
	g := &fakeGit{
		staged:     []string{"a.go"},
		stagedDiff: "+staged change\n",
	}
	r := newTestResolver(g)

	target, err := r.SinceTime(".", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, KindStagedDiff, target.Kind)
}

func TestStaged_Deterministic(t *testing.T) {
	g := &fakeGit{
		staged:     []string{"a.go", "b.go", "c.go"},
		stagedDiff: "diff a\ndiff b\ndiff c\n",
	}
	r := newTestResolver(g)

	first, err := r.Staged(".")
	require.NoError(t, err)
	second, err := r.Staged(".")
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Files, second.Files)
}

func TestNewResolver_NormalizesExtensions(t *testing.T) {
	r := NewResolver(&fakeGit{}, []string{"go", ".PY", " .js ", ""}, 3)
	assert.True(t, r.supported("main.go"))
	assert.True(t, r.supported("script.py"))
	assert.True(t, r.supported("app.js"))
	assert.False(t, r.supported("style.css"))
}
