package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"formgate/internal/engine"
)

// LintResult is the JSON payload of the lint command.
type LintResult struct {
	Valid  bool           `json:"valid"`
	Issues []engine.Issue `json:"issues"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <schema-file>",
		Short: "Report malformed questions and rules in a form schema",
		Long: `Lint a form schema without evaluating it.

Reports duplicate ids, unknown types and operators, select questions
without options, and rules that point at missing, later or file questions.
Exits 1 when any issue is found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return runLint(out, args[0])
		},
	}
}

func runLint(out *OutputFormatter, path string) error {
	questions, err := LoadSchema(path)
	if err != nil {
		return reportLoadError(out, err)
	}
	out.VerboseLog("Loaded %d question(s) from %s", len(questions), path)

	issues := engine.Lint(questions)
	if issues == nil {
		issues = []engine.Issue{}
	}

	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: LintResult{Valid: len(issues) == 0, Issues: issues}}
		if len(issues) > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "LINT", Message: fmt.Sprintf("%d issue(s) found", len(issues))}
		}
		if err := out.JSON(resp); err != nil {
			return err
		}
	} else {
		if len(issues) == 0 {
			fmt.Fprintln(out.Writer, "✓ No issues found")
		} else {
			fmt.Fprintf(out.Writer, "✗ %d issue(s) found\n", len(issues))
			for _, issue := range issues {
				fmt.Fprintf(out.Writer, "  %s\n", issue)
			}
		}
	}

	if len(issues) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d issue(s) found", len(issues)))
	}
	return nil
}

// reportLoadError prints err and converts it to a command error.
func reportLoadError(out *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var le *LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	_ = out.Error(code, err.Error())
	return &ExitError{Code: ExitCommandError, Message: "failed to load input", Err: err}
}
