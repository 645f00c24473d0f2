package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed default.md
var defaultInstruction string

// ErrNoDefaultPrompt indicates the builtin instruction payload is empty,
// meaning the binary was built without its default prompt asset.
var ErrNoDefaultPrompt = errors.New("no review prompt found: builtin default is missing")

// Source identifies where an instruction came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceHome    Source = "home"
	SourceBuiltin Source = "builtin"
)

// Instruction is the system-level review instruction for a run. Exactly one
// source is selected per run.
type Instruction struct {
	Source Source
	Text   string
}

// configDirFunc returns the directory holding the home override, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cr"), nil
}

// OverridePath returns the location of the operator-level prompt override.
func OverridePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompt.md"), nil
}

// Resolve selects the instruction text for a run. Resolution order: the
// explicit path, the home override, then the builtin default; the first
// existing source wins. An explicit path that cannot be read is an error,
// never a fallthrough.
func Resolve(explicitPath string) (*Instruction, error) {
	if explicitPath != "" {
		data, err := os.ReadFile(explicitPath)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		return &Instruction{Source: SourceFlag, Text: string(data)}, nil
	}

	if override, err := OverridePath(); err == nil {
		if data, err := os.ReadFile(override); err == nil {
			return &Instruction{Source: SourceHome, Text: string(data)}, nil
		}
	}

	if strings.TrimSpace(defaultInstruction) == "" {
		return nil, ErrNoDefaultPrompt
	}
	return &Instruction{Source: SourceBuiltin, Text: defaultInstruction}, nil
}
