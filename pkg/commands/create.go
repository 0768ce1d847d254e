package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
	common "github.com/beam-cloud/adzip/pkg/common"
)

type createCmdOptions struct {
	Force      bool
	Unsorted   bool
	MaxEntries int
}

func newCreateCmd(global *globalOptions) *cobra.Command {
	opts := &createCmdOptions{}

	cmd := &cobra.Command{
		Use:     "create <archive> <path>",
		Aliases: []string{"c"},
		Short:   "Create an archive from the specified path",
		Long: "Create an archive from a file or directory. The archive name gets the " +
			common.ArchiveExtension + " extension, and a numeric suffix if that name is already taken.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath := common.EnsureExtension(args[0])
			if !opts.Force {
				archivePath = common.NextAvailablePath(archivePath)
			}

			release, err := lockArchive(archivePath)
			if err != nil {
				return err
			}
			defer release()

			err = adzip.CreateArchive(adzip.CreateOptions{
				InputPath:  args[1],
				OutputPath: archivePath,
				Verbose:    global.Verbose,
				Unsorted:   opts.Unsorted,
				MaxEntries: opts.MaxEntries,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), archivePath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing archive instead of picking a new name")
	cmd.Flags().BoolVar(&opts.Unsorted, "unsorted", getEnvBool(envUnsorted, false), "Store directory members in filesystem order instead of by name")
	cmd.Flags().IntVar(&opts.MaxEntries, "max-entries", getEnvInt(envMaxEntries, 0), "Maximum number of entries (0 for no limit)")

	return cmd
}
