package commands

import (
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beam-cloud/adzip/pkg/storage"
)

type s3CmdOptions struct {
	Bucket         string
	Key            string
	Region         string
	Endpoint       string
	ForcePathStyle bool
	Concurrency    int
}

func (o *s3CmdOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Bucket, "bucket", "b", "", "S3 bucket name")
	cmd.Flags().StringVarP(&o.Key, "key", "k", "", "S3 object key (default: archive file name)")
	cmd.Flags().StringVar(&o.Region, "region", getEnvString(envAWSRegion, ""), "S3 region")
	cmd.Flags().StringVar(&o.Endpoint, "endpoint", getEnvString(envS3Endpoint, ""), "S3-compatible endpoint URL")
	cmd.Flags().BoolVar(&o.ForcePathStyle, "force-path-style", getEnvBool(envS3ForcePathStyle, false), "Use path-style bucket addressing")
	cmd.Flags().IntVar(&o.Concurrency, "concurrency", 0, "Parallel part transfers (0 for the default)")
	cmd.MarkFlagRequired("bucket")
}

func (o *s3CmdOptions) store(archivePath string) (storage.ArchiveStoreInterface, error) {
	// If no key is provided, use the base name of the archive as key
	key := o.Key
	if key == "" {
		key = filepath.Base(archivePath)
	}

	return storage.NewArchiveStore(storage.StoreModeS3, storage.ArchiveStoreOpts{
		S3: &storage.S3ArchiveStoreOpts{
			Bucket:         o.Bucket,
			Key:            key,
			Region:         o.Region,
			Endpoint:       o.Endpoint,
			ForcePathStyle: o.ForcePathStyle,
			Concurrency:    o.Concurrency,
		},
	})
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Upload an archive to remote storage",
	}

	opts := &s3CmdOptions{}
	s3Cmd := &cobra.Command{
		Use:   "s3 <archive>",
		Short: "Upload an archive to an S3 bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := rlockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			s, err := opts.store(args[0])
			if err != nil {
				return err
			}

			progressChan := make(chan int)
			done := make(chan struct{})
			go func() {
				defer close(done)
				reported := -1
				for progress := range progressChan {
					if progress/10 != reported {
						reported = progress / 10
						log.Debug().Int("percent", progress).Msg("uploading archive")
					}
				}
			}()

			err = s.Store(cmd.Context(), args[0], progressChan)
			close(progressChan)
			<-done
			return err
		},
	}
	opts.addFlags(s3Cmd)

	cmd.AddCommand(s3Cmd)
	return cmd
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download an archive from remote storage",
	}

	opts := &s3CmdOptions{}
	s3Cmd := &cobra.Command{
		Use:   "s3 <archive>",
		Short: "Download an archive from an S3 bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := lockArchive(args[0])
			if err != nil {
				return err
			}
			defer release()

			s, err := opts.store(args[0])
			if err != nil {
				return err
			}

			_, err = s.Fetch(cmd.Context(), args[0])
			return err
		},
	}
	opts.addFlags(s3Cmd)

	cmd.AddCommand(s3Cmd)
	return cmd
}
