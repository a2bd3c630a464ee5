package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crmarques/hypersync/config"
	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/internal/cli/commandmeta"
	"github.com/crmarques/hypersync/internal/cli/common"
)

type Dependencies struct {
	NewSession common.SessionFactory
	LoadConfig func(path string) (config.Session, error)
}

func (d Dependencies) commandDependencies() common.CommandDependencies {
	return common.CommandDependencies{
		NewSession: d.NewSession,
		LoadConfig: d.LoadConfig,
	}
}

// Execute runs the CLI until it finishes or ctx is cancelled. Cancelling
// ctx aborts every request still queued or in flight.
func Execute(ctx context.Context, deps Dependencies) error {
	root := NewRootCommand(deps)
	command, err := root.ExecuteContextC(ctx)
	emitStatus := shouldEmitExecutionStatus(os.Args[1:], command)

	if err != nil {
		if emitStatus {
			writeExecutionErrorStatus(root.ErrOrStderr(), err)
		} else {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), strings.TrimSpace(err.Error()))
		}
		return err
	}
	if emitStatus {
		writeExecutionOKStatus(root.ErrOrStderr())
	}
	return nil
}

// exitCodeInterrupted follows the shell convention for SIGINT.
const exitCodeInterrupted = 130

var exitCodes = map[faults.ErrorCategory]int{
	faults.ValidationError: 2,
	faults.NotFoundError:   3,
	faults.AuthError:       4,
	faults.ConflictError:   5,
	faults.TransportError:  6,
	faults.ContractError:   7,
}

func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return exitCodeInterrupted
	}

	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		return 1
	}
	if code, ok := exitCodes[typedErr.Category]; ok {
		return code
	}
	return 1
}

func writeExecutionOKStatus(w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s command executed successfully.\n", formatStatusLabel(w, "OK"))
}

func writeExecutionErrorStatus(w io.Writer, err error) {
	description := "command execution failed"
	if err != nil {
		description = fmt.Sprintf("%s: %s", description, strings.TrimSpace(err.Error()))
	}
	_, _ = fmt.Fprintf(w, "%s %s.\n", formatStatusLabel(w, "ERROR"), description)
}

func formatStatusLabel(w io.Writer, status string) string {
	label := fmt.Sprintf("[%s]", strings.TrimSpace(status))
	if !supportsANSIStatus(w) {
		return label
	}

	switch strings.TrimSpace(status) {
	case "OK":
		return "\x1b[1;32m" + label + "\x1b[0m"
	case "ERROR":
		return "\x1b[1;31m" + label + "\x1b[0m"
	default:
		return label
	}
}

func supportsANSIStatus(w io.Writer) bool {
	if shouldSuppressColor(os.Args[1:]) {
		return false
	}
	if !common.IsTerminalWriter(w) {
		return false
	}

	term := strings.TrimSpace(strings.ToLower(os.Getenv("TERM")))
	return term != "" && term != "dumb"
}

func shouldSuppressColor(args []string) bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return true
	}
	return parseStatusFlags(args).noColor
}

func shouldEmitExecutionStatus(args []string, command *cobra.Command) bool {
	if shouldSuppressStatusMessage(args) {
		return false
	}
	if isHelpOrCompletionInvocation(args) {
		return false
	}
	return commandPathSupportsExecutionStatus(commandPath(command))
}

func commandPath(command *cobra.Command) string {
	if command == nil {
		return ""
	}
	return strings.TrimSpace(command.CommandPath())
}

func commandPathSupportsExecutionStatus(path string) bool {
	return commandmeta.EmitsExecutionStatusPath(path)
}

func shouldSuppressStatusMessage(args []string) bool {
	return parseStatusFlags(args).noStatus
}

type statusFlags struct {
	noStatus bool
	noColor  bool
}

// parseStatusFlags reads the status flags from raw args, before and
// independently of cobra, so the status line honours them even when the
// command itself failed to parse.
func parseStatusFlags(args []string) statusFlags {
	flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)

	var parsed statusFlags
	flags.BoolVarP(&parsed.noStatus, "no-status", "n", false, "hide status output")
	flags.BoolVar(&parsed.noColor, "no-color", false, "disable color")
	if err := flags.Parse(args); err != nil {
		return statusFlags{
			noStatus: hasBoolArgToken(args, "--no-status", "-n"),
			noColor:  hasBoolArgToken(args, "--no-color", ""),
		}
	}
	return parsed
}

func isHelpOrCompletionInvocation(args []string) bool {
	if len(args) == 0 {
		return true
	}
	if args[0] == "help" {
		return true
	}
	switch args[0] {
	case "completion", "__complete", "__completeNoDesc":
		return true
	}

	for _, current := range args {
		if current == "--" {
			break
		}
		if current == "--help" || current == "-h" {
			return true
		}
	}
	return false
}

func hasBoolArgToken(args []string, long string, short string) bool {
	for _, current := range args {
		if current == "--" {
			break
		}
		if current == long || (short != "" && current == short) {
			return true
		}
		if value, ok := strings.CutPrefix(current, long+"="); ok {
			return strings.TrimSpace(value) != "false"
		}
	}
	return false
}
