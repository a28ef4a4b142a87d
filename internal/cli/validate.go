package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/racetimer/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Path   string                   `json:"path"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a config file",
		Long: `Validate a racetimer config file without touching any hardware.

Checks the file against the config schema and the lane and line rules.
The file may be given as an argument or with --config.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	if path == "" {
		return out.Fail(ExitCommandError, ErrCodeConfig, "no config file given", nil)
	}
	out.VerboseLog("Validating %s", path)

	_, err := config.Load(path)
	if err == nil {
		if isJSON(opts) {
			return out.Success(ValidationResult{Valid: true, Path: path})
		}
		return out.Success(fmt.Sprintf("%s: config valid", path))
	}

	var verrs config.ValidationErrors
	if !errors.As(err, &verrs) {
		return out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	if isJSON(opts) {
		if outErr := out.Error(ErrCodeInvalid, "config invalid", ValidationResult{Valid: false, Path: path, Errors: verrs}); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "config invalid", err)
	}

	for _, e := range verrs {
		fmt.Fprintln(cmd.OutOrStdout(), e.Error())
	}
	return out.Fail(ExitFailure, ErrCodeInvalid, fmt.Sprintf("%s: %d problem(s)", path, len(verrs)), nil)
}
