package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/goevolve/internal/domain"
)

const listLongDescription = `List the targets declared by workflow documents with their step counts
and mutation operators. Targets imported from Go sources show where their
steps came from.`

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List workflow targets and their operators",
		Long:  listLongDescription,
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.List(domain.ListArgs{Paths: parsePaths(args)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
