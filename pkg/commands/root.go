package commands

import (
	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
)

type globalOptions struct {
	LogLevel string
	Verbose  bool
}

// NewRootCmd builds the adzip command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "adzip",
		Short:         "Pack directory trees into a single archive file and unpack them again",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return adzip.SetLogLevel(opts.LogLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", getEnvString(envLogLevel, defaultLogLevel), "Log level: debug, info, warn, error, disabled")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every archived and extracted member")

	cmd.AddCommand(
		newCreateCmd(opts),
		newAppendCmd(opts),
		newExtractCmd(opts),
		newMetadataCmd(),
		newDisplayCmd(),
		newCatCmd(),
		newCompactCmd(),
		newStoreCmd(),
		newFetchCmd(),
	)

	return cmd
}
