package budget

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joescharf/cr/internal/scope"
)

// ErrDeclined indicates the operator declined to review over-budget content.
var ErrDeclined = errors.New("review declined")

// Limits holds the line budgets for the two target shapes. The single-file
// and diff limits are independent and never cross-applied.
type Limits struct {
	MaxFileLines int
	MaxDiffLines int
}

// Decision records the outcome of a size check.
type Decision struct {
	WithinBudget    bool
	OverrideGranted bool
}

// Approved reports whether a review request may be built from this decision.
func (d Decision) Approved() bool {
	return d.WithinBudget || d.OverrideGranted
}

// Confirmer asks the operator a yes/no question. Confirm blocks until the
// operator answers or ctx is cancelled.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Guard checks targets against line budgets, blocking on operator
// confirmation when a budget is exceeded.
type Guard struct {
	limits    Limits
	confirmer Confirmer
}

// NewGuard creates a guard with the given limits and confirmation provider.
func NewGuard(limits Limits, c Confirmer) *Guard {
	return &Guard{limits: limits, confirmer: c}
}

// Check measures the target against its applicable limit. Over-budget
// targets proceed only when the operator confirms; declining returns
// ErrDeclined and no request is built. Cancellation while the prompt is
// open returns the context error, not ErrDeclined.
func (g *Guard) Check(ctx context.Context, target *scope.Target) (Decision, error) {
	limit := g.limits.MaxDiffLines
	if target.Kind == scope.KindSingleFile {
		limit = g.limits.MaxFileLines
	}

	lines := target.Lines()
	if lines <= limit {
		return Decision{WithinBudget: true}, nil
	}

	var msg string
	if target.Kind == scope.KindSingleFile {
		msg = fmt.Sprintf("File has %d lines (max: %d). Continue?", lines, limit)
	} else {
		msg = fmt.Sprintf("Large diff detected (%d lines, max: %d). Continue with full diff review?", lines, limit)
	}

	ok, err := g.confirmer.Confirm(ctx, msg)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{}, ErrDeclined
	}
	return Decision{OverrideGranted: true}, nil
}

// TerminalConfirmer prompts on the terminal and reads a y/N answer. It waits
// indefinitely for the answer; sizing judgment gets no timeout, and only
// cancellation interrupts the wait.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *TerminalConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(c.Out, "⚠ %s [y/N]: ", message)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		text, err := bufio.NewReader(c.In).ReadString('\n')
		ch <- answer{text, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.Out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil {
			return false, nil
		}
		text := strings.ToLower(strings.TrimSpace(a.text))
		return text == "y" || text == "yes", nil
	}
}

// AutoConfirmer accepts every prompt without asking, for non-interactive runs.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(context.Context, string) (bool, error) { return true, nil }
