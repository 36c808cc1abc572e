package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newDatasetsCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List the registered Silver datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			var rows [][]string
			for _, d := range reg.All() {
				rules := strconv.Itoa(len(d.Rules))
				if verbose {
					rules = d.Rules.Describe()
				}
				rows = append(rows, []string{d.Dataset, d.Step, d.Input.String(), d.Output.String(), rules})
			}
			printTable(a.stdout, []string{"DATASET", "STEP", "INPUT", "OUTPUT", "RULES"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "describe every rule")
	return cmd
}
