package review

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"github.com/joescharf/cr/internal/llm"
	"github.com/joescharf/cr/internal/output"
	"github.com/joescharf/cr/internal/prompt"
	"github.com/joescharf/cr/internal/scope"
)

// tokenEstimateCharsPerToken is the rough chars-per-token ratio for the
// pre-flight size check.
const tokenEstimateCharsPerToken = 4

// Config holds review invocation tuning.
type Config struct {
	MaxEstimatedTokens int
	Timeout            time.Duration
}

// DefaultConfig returns the invoker config, reading from viper when available.
func DefaultConfig() Config {
	maxEstimated := viper.GetInt("review.max_estimated_tokens")
	if maxEstimated <= 0 {
		maxEstimated = 100000
	}

	seconds := viper.GetInt("backend.timeout_seconds")
	if seconds <= 0 {
		seconds = 120
	}

	return Config{
		MaxEstimatedTokens: maxEstimated,
		Timeout:            time.Duration(seconds) * time.Second,
	}
}

// Request is the assembled review request, built once immediately before the
// backend call and not mutated after.
type Request struct {
	RunID       string
	Model       string
	Instruction *prompt.Instruction
	TargetLabel string
	UserMessage string
}

// Result holds a completed review.
type Result struct {
	Markdown     string
	Model        string
	RunID        string
	InputTokens  int64
	OutputTokens int64
}

// Invoker assembles review requests and calls the completion backend. It
// never retries: a failed call is surfaced, not silently re-billed.
type Invoker struct {
	backend llm.Backend
	cfg     Config
	ui      *output.UI
}

// NewInvoker creates an invoker with the given backend and config.
func NewInvoker(backend llm.Backend, cfg Config, ui *output.UI) *Invoker {
	return &Invoker{backend: backend, cfg: cfg, ui: ui}
}

// Invoke sends the approved target to the backend and returns the review.
func (inv *Invoker) Invoke(ctx context.Context, in *prompt.Instruction, target *scope.Target, model string) (*Result, error) {
	// 1. Assemble the request
	req := &Request{
		RunID:       newRunID(),
		Model:       model,
		Instruction: in,
		TargetLabel: target.Label,
		UserMessage: buildUserMessage(target),
	}

	// 2. Refuse clearly oversized content before spending a backend call
	estimated := (len(in.Text) + len(req.UserMessage)) / tokenEstimateCharsPerToken
	if estimated > inv.cfg.MaxEstimatedTokens {
		return nil, fmt.Errorf("content too large (~%d estimated tokens, limit %d): review smaller chunks or individual files",
			estimated, inv.cfg.MaxEstimatedTokens)
	}

	// 3. Echo the fully assembled request in debug mode
	inv.echoRequest(req, estimated)

	// 4. Call the backend with a bounded wait
	callCtx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	completion, err := inv.backend.Complete(callCtx, in.Text, req.UserMessage)
	if err != nil {
		return nil, err
	}

	// 5. Append the run footer
	markdown := fmt.Sprintf("%s\n\nModel: %s -- Tokens: %d in, %d out -- Run: %s\n",
		strings.TrimRight(completion.Text, "\n"), model,
		completion.InputTokens, completion.OutputTokens, req.RunID)

	return &Result{
		Markdown:     markdown,
		Model:        model,
		RunID:        req.RunID,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}, nil
}

// buildUserMessage formats the target content as the user-role message. Diff
// targets keep git's per-file section headers as the boundaries between files.
func buildUserMessage(target *scope.Target) string {
	var b strings.Builder

	if target.Kind == scope.KindSingleFile {
		fmt.Fprintf(&b, "Please review this file: %s\n\n", target.Label)
		fmt.Fprintf(&b, "```%s\n%s\n```\n\n", fenceLang(target.Label), strings.TrimRight(target.Content, "\n"))
		b.WriteString("Please provide a friendly code review focusing on readability, maintainability, and potential improvements.")
		return b.String()
	}

	fmt.Fprintf(&b, "Please review the changes in these files: %s\n\n", strings.Join(target.Files, ", "))
	b.WriteString("Here's the diff showing what has changed:\n\n")
	fmt.Fprintf(&b, "```diff\n%s\n```\n\n", strings.TrimRight(target.Content, "\n"))
	b.WriteString("Please provide a friendly code review focusing on the changes made, highlighting good practices and suggesting improvements where appropriate.")
	return b.String()
}

// fenceLang maps a file extension to a markdown fence language.
func fenceLang(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".php":
		return "php"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

// echoRequest prints the assembled request before sending, for auditability.
func (inv *Invoker) echoRequest(req *Request, estimated int) {
	if !inv.ui.Debug {
		return
	}

	inv.ui.DebugLog("run %s", req.RunID)
	inv.ui.DebugLog("model: %s", req.Model)
	inv.ui.DebugLog("instruction source: %s", output.SourceColor(string(req.Instruction.Source)))
	inv.ui.DebugLog("target: %s", req.TargetLabel)
	inv.ui.DebugLog("estimated tokens: ~%d", estimated)

	rule := strings.Repeat("=", 60)
	fmt.Fprintln(inv.ui.ErrOut, rule)
	fmt.Fprintln(inv.ui.ErrOut, req.Instruction.Text)
	fmt.Fprintln(inv.ui.ErrOut, rule)
	fmt.Fprintln(inv.ui.ErrOut, req.UserMessage)
	fmt.Fprintln(inv.ui.ErrOut, rule)
}

var entropy = rand.New(rand.NewSource(time.Now().UnixNano()))

func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}
