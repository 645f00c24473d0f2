package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/cr/internal/output"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cr"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage cr configuration.

Running bare 'cr config' is the same as 'cr config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# cr configuration
# See: cr config show (for effective values and sources)

# Model to review with, as provider/model (default: "{{ .Model }}")
# model: "{{ .Model }}"

# Line limit for single-file reviews (default: {{ .MaxLines }})
# max_lines: {{ .MaxLines }}

# Line limit for diff reviews (default: {{ .MaxDiffLines }})
# max_diff_lines: {{ .MaxDiffLines }}

# File extensions eligible for review
# extensions: [{{ .Extensions }}]

diff:
  # Context lines around each diff hunk (default: {{ .DiffContextLines }})
  context_lines: {{ .DiffContextLines }}

anthropic:
  # API key; CR_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY also work
  api_key: ""

review:
  # Response token cap per review (default: {{ .ReviewMaxTokens }})
  max_tokens: {{ .ReviewMaxTokens }}

  # Sampling temperature (default: {{ .ReviewTemperature }})
  temperature: {{ .ReviewTemperature }}

backend:
  # Seconds to wait for the backend before giving up (default: {{ .BackendTimeoutSeconds }})
  timeout_seconds: {{ .BackendTimeoutSeconds }}

glow:
  # Style passed to the glow markdown renderer (default: "{{ .GlowStyle }}")
  style: "{{ .GlowStyle }}"
`

type configTemplateData struct {
	Model                 string
	MaxLines              int
	MaxDiffLines          int
	Extensions            string
	DiffContextLines      int
	ReviewMaxTokens       int64
	ReviewTemperature     float64
	BackendTimeoutSeconds int
	GlowStyle             string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	exts := viper.GetStringSlice("extensions")
	for i, e := range exts {
		exts[i] = fmt.Sprintf("%q", e)
	}

	data := configTemplateData{
		Model:                 viper.GetString("model"),
		MaxLines:              viper.GetInt("max_lines"),
		MaxDiffLines:          viper.GetInt("max_diff_lines"),
		Extensions:            strings.Join(exts, ", "),
		DiffContextLines:      viper.GetInt("diff.context_lines"),
		ReviewMaxTokens:       viper.GetInt64("review.max_tokens"),
		ReviewTemperature:     viper.GetFloat64("review.temperature"),
		BackendTimeoutSeconds: viper.GetInt("backend.timeout_seconds"),
		GlowStyle:             viper.GetString("glow.style"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "model", EnvVar: "CR_MODEL"},
	{Key: "max_lines", EnvVar: "CR_MAX_LINES"},
	{Key: "max_diff_lines", EnvVar: "CR_MAX_DIFF_LINES"},
	{Key: "extensions", EnvVar: "CR_EXTENSIONS"},
	{Key: "diff.context_lines", EnvVar: "CR_DIFF_CONTEXT_LINES"},
	{Key: "anthropic.api_key", EnvVar: "CR_ANTHROPIC_API_KEY", Secret: true},
	{Key: "review.max_tokens", EnvVar: "CR_REVIEW_MAX_TOKENS"},
	{Key: "review.temperature", EnvVar: "CR_REVIEW_TEMPERATURE"},
	{Key: "review.max_estimated_tokens", EnvVar: "CR_REVIEW_MAX_ESTIMATED_TOKENS"},
	{Key: "backend.timeout_seconds", EnvVar: "CR_BACKEND_TIMEOUT_SECONDS"},
	{Key: "glow.style", EnvVar: "CR_GLOW_STYLE"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	table := ui.Table([]string{"KEY", "VALUE", "SOURCE"})
	for _, k := range configKeys {
		val := fmt.Sprintf("%v", viper.Get(k.Key))
		if k.Secret {
			if val == "" {
				val = output.Red("(not set)")
			} else {
				val = "********"
			}
		}
		table.Append([]string{k.Key, val, detectSource(k.Key, k.EnvVar, fileValues)})
	}
	return table.Render()
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return output.Yellow(fmt.Sprintf("(env: %s)", envVar))
	}
	if fileValues[key] {
		return output.Green("(file)")
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set, set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'cr config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
