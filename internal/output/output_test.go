package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestDebugLog_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Debug = true
	u.DebugLog("detail %d", 1)
	assert.Contains(t, errOut.String(), "detail 1")
}

func TestDebugLog_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Debug = false
	u.DebugLog("detail %d", 1)
	assert.Empty(t, errOut.String())
}

func TestDebugLog_KeepsStdoutClean(t *testing.T) {
	u, out, _ := newTestUI()
	u.Debug = true
	u.DebugLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestSourceColor(t *testing.T) {
	assert.NotEmpty(t, SourceColor("flag"))
	assert.NotEmpty(t, SourceColor("home"))
	assert.NotEmpty(t, SourceColor("builtin"))
	assert.Equal(t, "unknown", SourceColor("unknown"))
}

func TestLinesColor(t *testing.T) {
	assert.NotEmpty(t, LinesColor(10, 500))
	assert.NotEmpty(t, LinesColor(450, 500))
	assert.NotEmpty(t, LinesColor(800, 500))
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Field", "Value"})
	require.NotNil(t, table)

	table.Append([]string{"model", "anthropic/claude-sonnet-4-5"})
	table.Append([]string{"target", "staged changes"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "model") || strings.Contains(result, "MODEL"),
		"table output should contain field names")
	assert.True(t, strings.Contains(result, "staged changes"),
		"table output should contain values")
}
