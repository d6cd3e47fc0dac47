package main

import (
	"github.com/spf13/cobra"

	"github.com/pboyd/sprintpatch"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "Print the supported host layouts as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ls, err := loadLayouts()
		if err != nil {
			return err
		}
		return sprintpatch.WriteLayouts(cmd.OutOrStdout(), ls)
	},
}
