package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"formgate/internal/engine"
	"formgate/internal/model"
)

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	Visibility engine.Visibility `json:"visibility"`
	Accepted   bool              `json:"accepted"`
	Rejection  *engine.Rejection `json:"rejection,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <schema-file> <answers-file>",
		Short: "Compute visibility and the submission verdict for an answer set",
		Long: `Evaluate an answer set against a form schema exactly as submission does.

Prints the visibility of every question followed by the verdict.
Exits 1 when the submission would be rejected.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			return runEval(out, args[0], args[1])
		},
	}
}

func runEval(out *OutputFormatter, schemaPath, answersPath string) error {
	questions, err := LoadSchema(schemaPath)
	if err != nil {
		return reportLoadError(out, err)
	}
	answers, err := LoadAnswers(answersPath)
	if err != nil {
		return reportLoadError(out, err)
	}
	out.VerboseLog("Loaded %d question(s) and %d answer(s)", len(questions), len(answers))

	vis, err := engine.Evaluate(questions, answers)
	rejection, rejected := engine.AsRejection(err)
	if err != nil && !rejected {
		return &ExitError{Code: ExitCommandError, Message: "evaluation failed", Err: err}
	}

	if out.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: EvalResult{Visibility: vis, Accepted: !rejected, Rejection: rejection}}
		if rejected {
			resp.Status = "error"
			resp.Error = &CLIError{Code: string(rejection.Code), Message: rejection.Error()}
		}
		if err := out.JSON(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out.Writer, "Visibility")
		for _, q := range model.SortQuestions(questions) {
			state := "visible"
			if !vis[q.ID] {
				state = "hidden"
			}
			fmt.Fprintf(out.Writer, "  %s: %s\n", q.ID, state)
		}
		if rejected {
			fmt.Fprintf(out.Writer, "✗ Rejected: %s [%s %s]\n", rejection.Error(), rejection.Code, rejection.QuestionID)
		} else {
			fmt.Fprintln(out.Writer, "✓ Accepted")
		}
	}

	if rejected {
		return &ExitError{Code: ExitFailure, Message: "submission rejected", Err: rejection}
	}
	return nil
}
