package commands

import (
	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact <archive>",
		Short: "Rewrite an archive without the space left behind by appends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireArchive(args[0]); err != nil {
				return err
			}

			release, err := lockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			return adzip.CompactArchive(args[0])
		},
	}
}
