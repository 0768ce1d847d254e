package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/beam-cloud/adzip/pkg/adzip"
	common "github.com/beam-cloud/adzip/pkg/common"
)

type LocalArchiveStorage struct {
	archivePath string
	metadata    *common.ArchiveMetadata
	fileHandle  *os.File
}

type LocalArchiveStorageOpts struct {
	ArchivePath string
	Metadata    *common.ArchiveMetadata // Read from the archive when nil
}

func NewLocalArchiveStorage(opts LocalArchiveStorageOpts) (*LocalArchiveStorage, error) {
	metadata := opts.Metadata
	if metadata == nil {
		var err error
		metadata, err = adzip.NewArchiver().ExtractMetadata(opts.ArchivePath)
		if err != nil {
			return nil, err
		}
	}

	fileHandle, err := os.Open(opts.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", common.ErrArchiveIO, opts.ArchivePath, err)
	}

	return &LocalArchiveStorage{
		metadata:    metadata,
		archivePath: opts.ArchivePath,
		fileHandle:  fileHandle,
	}, nil
}

// ReadFile reads member bytes starting at off, never past the member's end.
func (s *LocalArchiveStorage) ReadFile(entry *common.Entry, dest []byte, off int64) (int, error) {
	if entry.IsDir() {
		return 0, fmt.Errorf("%w: %s", common.ErrNotAFile, entry.Name)
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d is invalid", off)
	}
	if off >= entry.Size {
		return 0, io.EOF
	}

	want := dest
	if remaining := entry.Size - off; int64(len(want)) > remaining {
		want = want[:remaining]
	}

	n, err := s.fileHandle.ReadAt(want, entry.Offset+off)
	if err != nil {
		return n, fmt.Errorf("%w: unable to read data from file: %w", common.ErrArchiveIO, err)
	}
	if n < len(dest) {
		return n, io.EOF
	}
	return n, nil
}

func (s *LocalArchiveStorage) Metadata() *common.ArchiveMetadata {
	return s.metadata
}

func (s *LocalArchiveStorage) Cleanup() error {
	return s.fileHandle.Close()
}
