// Package cli implements the tts-cli command: parse the text and output path,
// prepare the output directory, run the configured backend and turn the
// outcome into an exit code.
package cli

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/book-expert/tts-cli/internal/config"
	"github.com/book-expert/tts-cli/internal/core"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitBackend = 2
)

// Flag names.
const (
	flagConfig   = "config"
	flagEngine   = "engine"
	flagProfile  = "profile"
	flagModel    = "model"
	flagSpeaker  = "speaker"
	flagLanguage = "language"
	flagHealth   = "health"
)

// Flag descriptions.
const (
	flagConfigDesc   = "Path to a TOML or YAML config file (defaults to project discovery)"
	flagEngineDesc   = "Synthesis engine: coqui, coqui-server or piper"
	flagProfileDesc  = "Coqui profile: ljspeech or xtts"
	flagModelDesc    = "Model identifier (Coqui model name or Piper voice)"
	flagSpeakerDesc  = "Speaker name or id for multi-speaker models"
	flagLanguageDesc = "Language code for multilingual models"
	flagHealthDesc   = "Load the backend, report whether it is ready and exit"
)

const (
	defaultProgramName = "tts-cli"
	usageLineFmt       = "Usage: %s [flags] [--] \"<text>\" <output_path>\n"
	errMissingArgs     = "expected text and output path"
	errExtraArgsFmt    = "unexpected argument %q after the output path"
	endOfFlags         = "--"
	reasonHelp         = "help requested"
)

// Invocation is a parsed command line.
type Invocation struct {
	Request    core.Request
	Overrides  config.Overrides
	ConfigPath string
	Health     bool
}

func newFlagSet(program string, inv *Invocation) *flag.FlagSet {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&inv.ConfigPath, flagConfig, "", flagConfigDesc)
	fs.StringVar(&inv.Overrides.Engine, flagEngine, "", flagEngineDesc)
	fs.StringVar(&inv.Overrides.Profile, flagProfile, "", flagProfileDesc)
	fs.StringVar(&inv.Overrides.Model, flagModel, "", flagModelDesc)
	fs.StringVar(&inv.Overrides.Speaker, flagSpeaker, "", flagSpeakerDesc)
	fs.StringVar(&inv.Overrides.Language, flagLanguage, "", flagLanguageDesc)
	fs.BoolVar(&inv.Health, flagHealth, false, flagHealthDesc)

	return fs
}

// Parse reads argv (including the program name). Flags come first; the two
// positionals are the text and the output path. The first argument that is
// not a known flag starts the positionals, so text such as "-5 degrees" needs
// no quoting beyond the shell's; "--" ends the flags explicitly. Any problem
// is a *core.UsageError.
func Parse(argv []string) (Invocation, error) {
	var inv Invocation

	fs := newFlagSet(programName(argv), &inv)

	var args []string
	if len(argv) > 1 {
		args = argv[1:]
	}

	split := positionalStart(fs, args)

	err := fs.Parse(args[:split])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return inv, &core.UsageError{Reason: reasonHelp}
		}

		return inv, &core.UsageError{Reason: err.Error()}
	}

	positionals := args[split:]
	if len(positionals) > 0 && positionals[0] == endOfFlags {
		positionals = positionals[1:]
	}

	if inv.Health {
		return inv, nil
	}

	if len(positionals) < 2 {
		return inv, &core.UsageError{Reason: errMissingArgs}
	}

	if len(positionals) > 2 {
		return inv, &core.UsageError{Reason: fmt.Sprintf(errExtraArgsFmt, positionals[2])}
	}

	inv.Request = core.Request{
		Text:       positionals[0],
		OutputPath: positionals[1],
	}

	if strings.TrimSpace(inv.Request.Text) == "" {
		return inv, &core.UsageError{Reason: core.ErrTextEmpty.Error()}
	}

	if inv.Request.OutputPath == "" {
		return inv, &core.UsageError{Reason: core.ErrOutputPathEmpty.Error()}
	}

	return inv, nil
}

// positionalStart returns the index of the first argument that is not a
// defined flag (or a defined flag's value). "-h" and "-help" count as flags.
func positionalStart(fs *flag.FlagSet, args []string) int {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == endOfFlags || len(arg) < 2 || arg[0] != '-' {
			return i
		}

		name, _, hasValue := strings.Cut(strings.TrimPrefix(arg[1:], "-"), "=")
		if name == "h" || name == "help" {
			continue
		}

		defined := fs.Lookup(name)
		if defined == nil {
			return i
		}

		if !hasValue && !isBoolFlag(defined) {
			i++
		}
	}

	return len(args)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })

	return ok && b.IsBoolFlag()
}

// Usage returns the usage text for program.
func Usage(program string) string {
	var (
		inv Invocation
		buf bytes.Buffer
	)

	fs := newFlagSet(program, &inv)
	fs.SetOutput(&buf)

	fmt.Fprintf(&buf, usageLineFmt, program)
	fs.PrintDefaults()

	return buf.String()
}

// WriteUsage prints the usage text to w, preceded by the reason when err is set.
func WriteUsage(w io.Writer, argv []string, err error) {
	var usageErr *core.UsageError
	if errors.As(err, &usageErr) && usageErr.Reason != reasonHelp {
		fmt.Fprintf(w, "Error: %s\n", usageErr.Reason)
	}

	fmt.Fprint(w, Usage(programName(argv)))
}

func programName(argv []string) string {
	if len(argv) == 0 || argv[0] == "" {
		return defaultProgramName
	}

	return filepath.Base(argv[0])
}
