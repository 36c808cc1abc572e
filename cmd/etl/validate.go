package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aviation/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Check the configuration without touching the warehouse",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLenient: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.ValidateConfig(*a.cfg)
			if _, err := a.registry(); err != nil {
				issues = append(issues, config.Issue{Severity: config.SeverityError, Path: "datasets", Message: err.Error()})
			}
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				fmt.Fprintf(cmd.ErrOrStderr(), "configuration is invalid: %s\n", a.cfgFile)
				return errFailed
			}
			fmt.Fprintf(a.stdout, "configuration is valid (%d warnings)\n", len(issues))
			return nil
		},
	}
}
