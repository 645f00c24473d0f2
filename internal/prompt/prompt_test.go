package prompt

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfigDir points the home override at a temp dir for the test's duration.
func testConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = orig })
	return dir
}

func TestResolve_BuiltinDefault(t *testing.T) {
	testConfigDir(t)

	in, err := Resolve("")
	require.NoError(t, err)

	assert.Equal(t, SourceBuiltin, in.Source)
	assert.NotEmpty(t, in.Text)
	assert.Contains(t, in.Text, "code review")
}

func TestResolve_HomeOverride(t *testing.T) {
	dir := testConfigDir(t)
	override := "Review as a grumpy kernel maintainer.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.md"), []byte(override), 0644))

	in, err := Resolve("")
	require.NoError(t, err)

	assert.Equal(t, SourceHome, in.Source)
	assert.Equal(t, override, in.Text)
}

func TestResolve_ExplicitWins(t *testing.T) {
	dir := testConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.md"), []byte("home override\n"), 0644))

	explicit := filepath.Join(t.TempDir(), "strict.md")
	content := "Flag every missing test.\nBe terse.\n"
	require.NoError(t, os.WriteFile(explicit, []byte(content), 0644))

	in, err := Resolve(explicit)
	require.NoError(t, err)

	assert.Equal(t, SourceFlag, in.Source)
	assert.Equal(t, content, in.Text, "explicit prompt content must be used byte-for-byte")
}

func TestResolve_ExplicitMissing(t *testing.T) {
	testConfigDir(t)

	_, err := Resolve(filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolve_ExplicitMissingDoesNotFallBack(t *testing.T) {
	dir := testConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.md"), []byte("home override\n"), 0644))

	in, err := Resolve(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
	assert.Nil(t, in)
}

func TestOverridePath(t *testing.T) {
	dir := testConfigDir(t)

	path, err := OverridePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prompt.md"), path)
}

func TestBuiltinDefaultNotEmpty(t *testing.T) {
	assert.NotEmpty(t, defaultInstruction)
}
