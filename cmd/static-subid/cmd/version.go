package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/containertools/static-subid/pkg/version"
)

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of static-subid",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("static-subid version :", version.Version())
	},
}
