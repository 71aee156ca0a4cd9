package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrmdev/plugsim/internal/form"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <capture-file>",
		Short: "Validate a form capture document against the capture schema",
		Long: `Validate a form capture document against the capture schema.

Reports schema violations with positions instead of letting a malformed
capture surface later as odd simulation output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			capture, err := form.Load(args[0])
			if err != nil {
				f.Error(ErrCodeCaptureLoad, err.Error(), nil)
				return WrapExitError(ExitFailure, "invalid capture", err)
			}

			if rootOpts.Format == "json" {
				return f.Success(map[string]any{
					"entity": capture.Entity.LogicalName,
					"fields": len(capture.Fields),
				})
			}
			return f.Success(fmt.Sprintf("OK: entity=%s fields=%d", capture.Entity.LogicalName, len(capture.Fields)))
		},
	}
	return cmd
}
