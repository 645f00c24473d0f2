package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/joescharf/cr/internal/output"
)

// glowTimeout bounds the pretty-printer subprocess. A hung renderer must not
// hold a finished review hostage.
const glowTimeout = 10 * time.Second

// Replaceable in tests.
var (
	lookPath   = exec.LookPath
	glowBinary = "glow"
)

// Renderer writes a finished review to the terminal. Rendering never fails:
// implementations degrade to plain text rather than return errors.
type Renderer interface {
	Render(ctx context.Context, markdown string)
}

// Select probes the PATH once and picks the best available renderer.
func Select(out io.Writer, style string, ui *output.UI) Renderer {
	if _, err := lookPath(glowBinary); err == nil {
		ui.DebugLog("rendering with %s (style %s)", glowBinary, style)
		return &Glow{Out: out, Style: style}
	}
	ui.DebugLog("%s not found, using plain output", glowBinary)
	return &Plain{Out: out}
}

// Plain writes the review text unchanged between horizontal rules.
type Plain struct {
	Out io.Writer
}

func (p *Plain) Render(_ context.Context, markdown string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(p.Out, rule)
	fmt.Fprintln(p.Out, strings.TrimRight(markdown, "\n"))
	fmt.Fprintln(p.Out, rule)
}

// Glow pipes the review through the glow markdown renderer, holding the
// pretty-printed text until the subprocess succeeds. Failures and timeouts
// fall back to plain output without leaving partial text behind.
type Glow struct {
	Out   io.Writer
	Style string
}

func (g *Glow) Render(ctx context.Context, markdown string) {
	runCtx, cancel := context.WithTimeout(ctx, glowTimeout)
	defer cancel()

	var buf bytes.Buffer
	cmd := exec.CommandContext(runCtx, glowBinary, "-s", g.Style)
	cmd.Stdin = strings.NewReader(markdown)
	cmd.Stdout = &buf
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		// Cancelled runs print nothing.
		if ctx.Err() != nil {
			return
		}
		(&Plain{Out: g.Out}).Render(ctx, markdown)
		return
	}
	_, _ = buf.WriteTo(g.Out)
}
