package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/cr/internal/budget"
	"github.com/joescharf/cr/internal/git"
	"github.com/joescharf/cr/internal/llm"
	"github.com/joescharf/cr/internal/output"
	"github.com/joescharf/cr/internal/prompt"
	"github.com/joescharf/cr/internal/render"
	"github.com/joescharf/cr/internal/review"
	"github.com/joescharf/cr/internal/scope"
	"github.com/joescharf/cr/internal/timespec"
)

// Package-level shared dependencies, reconfigured in cobra.OnInitialize.
var (
	ui = output.New()

	debug  bool
	dryRun bool

	maxLinesFlag    int
	modelFlag       string
	promptFileFlag  string
	sinceCommitFlag string
	sinceFlag       string
	assumeYes       bool
)

var rootCmd = &cobra.Command{
	Use:   "cr [file]",
	Short: "AI code review for files and diffs",
	Long: `cr sends code to an AI reviewer and renders the response.

With a file argument it reviews that file. With no arguments it reviews
the staged diff. --since-commit and --since review the diff between an
older commit and the current tree.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(ctx context.Context, version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, budget.ErrDeclined):
		// A decline is a deliberate choice, not a failure
		os.Exit(2)
	case errors.Is(err, context.Canceled):
		ui.Error("Cancelled.")
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if debug {
			for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
				fmt.Fprintf(os.Stderr, "  caused by: %v\n", e)
			}
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd, args)
	}

	rootCmd.Flags().IntVar(&maxLinesFlag, "max-lines", 0, "Line limit for single-file reviews (default from config)")
	rootCmd.Flags().StringVar(&modelFlag, "model", "", "Model as provider/model (default from config)")
	rootCmd.Flags().StringVar(&promptFileFlag, "prompt-file", "", "Path to a custom review prompt")
	rootCmd.Flags().StringVar(&sinceCommitFlag, "since-commit", "", "Review changes between a commit and the current tree")
	rootCmd.Flags().StringVar(&sinceFlag, "since", "", "Review changes since a time like '1h', '30m', '2d', or 'today'")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip size-limit confirmation prompts")
	rootCmd.MarkFlagsMutuallyExclusive("since", "since-commit")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug output, including the exact request sent")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without calling the backend")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/cr/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "cr")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	viper.SetDefault("model", "anthropic/claude-sonnet-4-5")
	viper.SetDefault("max_lines", 500)
	viper.SetDefault("max_diff_lines", 1000)
	viper.SetDefault("extensions", []string{".go", ".py", ".php", ".js", ".ts"})
	viper.SetDefault("diff.context_lines", 3)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("review.max_tokens", 8192)
	viper.SetDefault("review.temperature", 0.3)
	viper.SetDefault("review.max_estimated_tokens", 100000)
	viper.SetDefault("backend.timeout_seconds", 120)
	viper.SetDefault("glow.style", "dracula")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Debug = debug
	ui.DryRun = dryRun
}

// reviewRun drives the pipeline: resolve the prompt and scope, check the
// size budget, invoke the backend once, render.
func reviewRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	model := modelFlag
	if model == "" {
		model = viper.GetString("model")
	}

	maxLines := viper.GetInt("max_lines")
	if cmd.Flags().Changed("max-lines") {
		maxLines = maxLinesFlag
	}
	if maxLines <= 0 || maxLines > 10000 {
		return fmt.Errorf("--max-lines must be between 1 and 10000, got %d", maxLines)
	}

	if len(args) == 1 && (sinceCommitFlag != "" || sinceFlag != "") {
		return errors.New("a file argument cannot be combined with --since or --since-commit")
	}

	// Missing credentials fail before the repository is touched
	backend, err := newBackend(model)
	if err != nil {
		return err
	}

	instruction, err := prompt.Resolve(promptFileFlag)
	if err != nil {
		return err
	}
	ui.DebugLog("prompt source: %s", output.SourceColor(string(instruction.Source)))

	target, err := resolveTarget(args)
	if err != nil {
		return err
	}

	limits := budget.Limits{
		MaxFileLines: maxLines,
		MaxDiffLines: viper.GetInt("max_diff_lines"),
	}
	limit := limits.MaxDiffLines
	if target.Kind == scope.KindSingleFile {
		limit = limits.MaxFileLines
	}
	ui.DebugLog("target: %s (%s of %d lines)", target.Label, output.LinesColor(target.Lines(), limit), limit)
	guard := budget.NewGuard(limits, newConfirmer())
	decision, err := guard.Check(ctx, target)
	if err != nil {
		if errors.Is(err, budget.ErrDeclined) {
			ui.Info("Review cancelled.")
			if target.Kind != scope.KindSingleFile {
				ui.Info("Consider reviewing files one at a time with: %s", output.Cyan("cr <filename>"))
			}
		}
		return err
	}
	if decision.OverrideGranted {
		ui.DebugLog("size limit overridden")
	}

	if dryRun {
		ui.DryRunMsg("Would review %s (%d lines) with %s", target.Label, target.Lines(), model)
		return nil
	}

	invoker := review.NewInvoker(backend, review.DefaultConfig(), ui)

	sp := newSpinner()
	if sp != nil {
		sp.Start()
	}
	result, err := invoker.Invoke(ctx, instruction, target, model)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		var be *llm.BackendError
		if errors.As(err, &be) && be.Transient {
			return fmt.Errorf("%w (temporary failure, try again shortly)", err)
		}
		return err
	}

	render.Select(os.Stdout, viper.GetString("glow.style"), ui).Render(ctx, result.Markdown)
	return ctx.Err()
}

// Replaceable in tests.
var newScopeResolver = func() *scope.Resolver {
	return scope.NewResolver(git.NewClient(), viper.GetStringSlice("extensions"), viper.GetInt("diff.context_lines"))
}

// resolveTarget picks the review scope from the argument and flags. A file
// argument wins, then an explicit commit, then a time spec, then the index.
func resolveTarget(args []string) (*scope.Target, error) {
	resolver := newScopeResolver()

	switch {
	case len(args) == 1:
		return resolver.File(args[0])
	case sinceCommitFlag != "":
		target, err := resolver.SinceCommit(".", sinceCommitFlag)
		return target, hintNoChanges(err, "the working tree matches "+sinceCommitFlag)
	case sinceFlag != "":
		at, err := timespec.Parse(sinceFlag, time.Now())
		if err != nil {
			return nil, err
		}
		ui.DebugLog("reviewing changes since %s", at.Format(time.RFC3339))
		target, err := resolver.SinceTime(".", at)
		return target, hintNoChanges(err, "the working tree has not changed since "+sinceFlag)
	default:
		target, err := resolver.Staged(".")
		return target, hintNoChanges(err, "stage changes with 'git add' or pass a file to review")
	}
}

// hintNoChanges appends scope-appropriate advice to an empty-scope error.
func hintNoChanges(err error, hint string) error {
	if errors.Is(err, scope.ErrNoChanges) {
		return fmt.Errorf("%w: %s", err, hint)
	}
	return err
}

func newConfirmer() budget.Confirmer {
	if assumeYes {
		return budget.AutoConfirmer{}
	}
	return &budget.TerminalConfirmer{In: os.Stdin, Out: os.Stderr}
}

// newSpinner returns a stderr spinner, or nil when stderr is not a terminal
// or debug output would interleave with it.
func newSpinner() *spinner.Spinner {
	if debug || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " Reviewing..."
	return sp
}
