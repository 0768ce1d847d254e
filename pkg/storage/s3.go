package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/beam-cloud/adzip/pkg/adzip"
	common "github.com/beam-cloud/adzip/pkg/common"
)

const (
	defaultUploadConcurrency   = 16
	defaultDownloadConcurrency = 8
)

type S3ArchiveStore struct {
	svc         *s3.Client
	bucket      string
	key         string
	concurrency int
}

type S3ArchiveStoreOpts struct {
	Bucket         string
	Key            string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	Concurrency    int
	HTTPClient     *http.Client
}

func NewS3ArchiveStore(opts S3ArchiveStoreOpts) (*S3ArchiveStore, error) {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if opts.AccessKey != "" && opts.SecretKey != "" {
		accessKey = opts.AccessKey
		secretKey = opts.SecretKey
	}

	cfg, err := getAWSConfig(accessKey, secretKey, opts.Region, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	svc := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// Check to see if we have access to the bucket
	_, err = svc.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: aws.String(opts.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot access bucket <%s>: %w", opts.Bucket, err)
	}

	return &S3ArchiveStore{
		svc:         svc,
		bucket:      opts.Bucket,
		key:         opts.Key,
		concurrency: opts.Concurrency,
	}, nil
}

func getAWSConfig(accessKey string, secretKey string, region string, httpClient *http.Client) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// AWS_CA_BUNDLE is only applied to the SDK's default client.
	if httpClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(httpClient))
	}

	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	return config.LoadDefaultConfig(context.TODO(), loadOpts...)
}

type progressReader struct {
	file *os.File
	size int64
	read int64
	ch   chan<- int
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.file.Read(p)
	if n > 0 {
		pr.read += int64(n)
		progress := int(float64(pr.read) / float64(pr.size) * 100)

		if pr.ch != nil {
			pr.ch <- progress
		}
	}
	return n, err
}

// Store uploads the archive at archivePath to the configured bucket and key.
// If progressChan is set it receives upload progress as a percentage and
// must be drained by the caller.
func (s3s *S3ArchiveStore) Store(ctx context.Context, archivePath string, progressChan chan<- int) error {
	// Refuse to publish something that would not read back
	if _, err := adzip.NewArchiver().ExtractMetadata(archivePath); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", common.ErrArchiveIO, archivePath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}
	length := fi.Size()

	pr := &progressReader{
		file: f,
		size: length,
		ch:   progressChan,
	}

	uploader := manager.NewUploader(s3s.svc, func(u *manager.Uploader) {
		u.Concurrency = defaultUploadConcurrency
		if s3s.concurrency > 0 {
			u.Concurrency = s3s.concurrency
		}
	})

	startTime := time.Now()
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s3s.bucket),
		Key:           aws.String(s3s.key),
		Body:          pr,
		ContentLength: &length,
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	log.Info().Str("bucket", s3s.bucket).Str("key", s3s.key).Int64("bytes", length).Dur("duration", time.Since(startTime)).Msg("archive stored")
	return nil
}

// Fetch downloads the object into archivePath. The download lands in a
// temporary sibling file and only replaces archivePath once it reads back as
// a valid archive.
func (s3s *S3ArchiveStore) Fetch(ctx context.Context, archivePath string) (int64, error) {
	size, err := s3s.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot stat object <%s>: %w", s3s.key, err)
	}
	log.Debug().Str("bucket", s3s.bucket).Str("key", s3s.key).Int64("bytes", size).Msg("fetching archive")

	tmpPath := filepath.Join(filepath.Dir(archivePath), fmt.Sprintf(".%s.%s", filepath.Base(archivePath), uuid.New().String()[:6]))

	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", common.ErrCannotCreateArchive, tmpPath, err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	downloader := manager.NewDownloader(s3s.svc, func(d *manager.Downloader) {
		d.Concurrency = defaultDownloadConcurrency
		if s3s.concurrency > 0 {
			d.Concurrency = s3s.concurrency
		}
	})

	startTime := time.Now()
	n, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(s3s.key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download object: %w", err)
	}
	if n != size {
		return 0, fmt.Errorf("%w: downloaded %d of %d bytes", common.ErrArchiveIO, n, size)
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}

	if _, err := adzip.NewArchiver().ExtractMetadata(tmpPath); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, archivePath); err != nil {
		return 0, fmt.Errorf("%w: moving download to %s: %w", common.ErrArchiveIO, archivePath, err)
	}

	log.Info().Str("bucket", s3s.bucket).Str("key", s3s.key).Int64("bytes", n).Dur("duration", time.Since(startTime)).Msg("archive fetched")
	return n, nil
}

// Size returns the size of the stored object.
func (s3s *S3ArchiveStore) Size(ctx context.Context) (int64, error) {
	resp, err := s3s.svc.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(s3s.key),
	})
	if err != nil {
		return 0, err
	}

	return aws.ToInt64(resp.ContentLength), nil
}
