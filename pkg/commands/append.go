package commands

import (
	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
)

type appendCmdOptions struct {
	Unsorted   bool
	MaxEntries int
}

func newAppendCmd(global *globalOptions) *cobra.Command {
	opts := &appendCmdOptions{}

	cmd := &cobra.Command{
		Use:     "append <archive> <path>",
		Aliases: []string{"a"},
		Short:   "Add a file or directory to an existing archive",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath := args[0]
			if err := requireArchive(archivePath); err != nil {
				return err
			}

			release, err := lockArchive(archivePath)
			if err != nil {
				return err
			}
			defer release()

			return adzip.AppendArchive(adzip.AppendOptions{
				ArchivePath: archivePath,
				InputPath:   args[1],
				Verbose:     global.Verbose,
				Unsorted:    opts.Unsorted,
				MaxEntries:  opts.MaxEntries,
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Unsorted, "unsorted", getEnvBool(envUnsorted, false), "Store directory members in filesystem order instead of by name")
	cmd.Flags().IntVar(&opts.MaxEntries, "max-entries", getEnvInt(envMaxEntries, 0), "Maximum number of entries (0 for no limit)")

	return cmd
}
