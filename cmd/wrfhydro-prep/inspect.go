package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/wrfhydro-prep/pkg/geogrid"
	"github.com/dd0wney/wrfhydro-prep/pkg/network"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Summarize a GEOGRID file or a network snapshot",
	Long: `Print the projection and grid geometry of a GEOGRID file, or the arc,
node and outlet counts of a network snapshot written by "build".`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	var out string
	if strings.HasSuffix(path, ".gob.sz") {
		s, err := network.ReadSnapshot(path)
		if err != nil {
			return err
		}
		out = renderSnapshot(filepath.Base(path), s)
	} else {
		d, err := geogrid.Open(path, -9999)
		if err != nil {
			return err
		}
		out = renderDomain(filepath.Base(path), d)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
