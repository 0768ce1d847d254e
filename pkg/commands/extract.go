package commands

import (
	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
)

type extractCmdOptions struct {
	OutputPath        string
	IgnorePermissions bool
}

func newExtractCmd(global *globalOptions) *cobra.Command {
	opts := &extractCmdOptions{}

	cmd := &cobra.Command{
		Use:     "extract <archive>",
		Aliases: []string{"x"},
		Short:   "Extract an archive to the specified path",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := rlockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			return adzip.ExtractArchive(adzip.ExtractOptions{
				InputFile:         args[0],
				OutputPath:        opts.OutputPath,
				Verbose:           global.Verbose,
				IgnorePermissions: opts.IgnorePermissions,
			})
		},
	}

	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "Output path for the extraction (default: current directory)")
	cmd.Flags().BoolVar(&opts.IgnorePermissions, "no-permissions", false, "Do not restore stored permission bits")

	return cmd
}
