package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/adzip"
	"github.com/beam-cloud/adzip/pkg/storage"
)

func newMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "metadata <archive>",
		Aliases: []string{"m"},
		Short:   "List the stored attributes of every entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := rlockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			return adzip.ListMetadata(args[0], cmd.OutOrStdout())
		},
	}
}

func newDisplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "display <archive>",
		Aliases: []string{"p"},
		Short:   "Print the archive contents as a tree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := rlockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			return adzip.RenderHierarchy(args[0], cmd.OutOrStdout())
		},
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <name>",
		Short: "Write one stored file to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := rlockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			s, err := storage.NewLocalArchiveStorage(storage.LocalArchiveStorageOpts{ArchivePath: args[0]})
			if err != nil {
				return err
			}
			defer s.Cleanup()

			r, _, err := storage.OpenMember(s, args[1])
			if err != nil {
				return err
			}

			_, err = io.Copy(cmd.OutOrStdout(), r)
			return err
		},
	}
}
