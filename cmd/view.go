package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/goevolve/internal/domain"
	m "github.com/mouse-blink/goevolve/internal/model"
)

var viewTargetFlags []string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously saved search reports",
		Long:  "View the ranked rounds of saved search reports and the diff of each best variant against its base.",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return workflow.View(domain.ViewArgs{
				Reports: m.Path(reportsOutputDirFlag),
				Targets: parseTargets(viewTargetFlags),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&viewTargetFlags, "target", "t", nil, "only show reports of this target (can be repeated)")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
