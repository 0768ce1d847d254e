package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	common "github.com/beam-cloud/adzip/pkg/common"
)

// ArchiveStorageInterface gives random access to the members of one archive.
type ArchiveStorageInterface interface {
	ReadFile(entry *common.Entry, dest []byte, offset int64) (int, error)
	Metadata() *common.ArchiveMetadata
	Cleanup() error
}

// ArchiveStoreInterface moves whole archives between the local disk and a
// remote store.
type ArchiveStoreInterface interface {
	Store(ctx context.Context, archivePath string, progressChan chan<- int) error
	Fetch(ctx context.Context, archivePath string) (int64, error)
}

type StoreMode string

const (
	StoreModeS3 StoreMode = "s3"
)

type ArchiveStoreOpts struct {
	S3 *S3ArchiveStoreOpts
}

func NewArchiveStore(mode StoreMode, opts ArchiveStoreOpts) (ArchiveStoreInterface, error) {
	switch mode {
	case StoreModeS3:
		if opts.S3 == nil {
			return nil, errors.New("s3 store options not provided")
		}
		return NewS3ArchiveStore(*opts.S3)
	default:
		return nil, fmt.Errorf("unsupported store mode %q", mode)
	}
}

// OpenMember returns a reader over the contents of the file stored under name.
func OpenMember(s ArchiveStorageInterface, name string) (io.Reader, *common.Entry, error) {
	entry := s.Metadata().Table.FindByName(name)
	if entry == nil {
		return nil, nil, fmt.Errorf("%w: %s", common.ErrMemberNotFound, name)
	}
	if entry.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", common.ErrNotAFile, name)
	}

	return io.NewSectionReader(&memberReaderAt{storage: s, entry: entry}, 0, entry.Size), entry, nil
}

// ReadMember returns the full contents of the file stored under name.
func ReadMember(s ArchiveStorageInterface, name string) ([]byte, error) {
	r, entry, err := OpenMember(s, name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, entry.Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", common.ErrArchiveIO, name, err)
	}
	return data, nil
}

type memberReaderAt struct {
	storage ArchiveStorageInterface
	entry   *common.Entry
}

func (m *memberReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return m.storage.ReadFile(m.entry, p, off)
}
