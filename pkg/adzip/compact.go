package adzip

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/rs/zerolog/log"

	common "github.com/beam-cloud/adzip/pkg/common"
)

// Compact rewrites the archive without the dead space that appends leave
// behind. Entry order, names and attributes are kept; only offsets change.
// The new archive is written next to the old one and renamed over it.
func (ca *Archiver) Compact(opts ArchiverOptions) (*common.ArchiveMetadata, error) {
	src, err := openArchive(opts.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}

	metadata, err := readMetadata(src, 0)
	if err != nil {
		return nil, err
	}

	tmpPath := filepath.Join(filepath.Dir(opts.ArchivePath), fmt.Sprintf(".%s.%s.tmp", filepath.Base(opts.ArchivePath), uuid.NewString()))
	dst, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrCannotCreateArchive, tmpPath, err)
	}

	committed := false
	defer func() {
		dst.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	// Write placeholder bytes for the header
	if _, err := dst.Write(make([]byte, common.HeaderLength)); err != nil {
		return nil, fmt.Errorf("%w: writing header placeholder: %w", common.ErrArchiveIO, err)
	}

	writer := bufio.NewWriterSize(dst, writeBufferSize)
	pos := int64(common.HeaderLength)
	table := common.NewEntryTable(0)

	for _, entry := range metadata.Table.Entries() {
		moved := *entry
		moved.Offset = pos

		if !entry.IsDir() {
			copied, err := io.Copy(writer, io.NewSectionReader(src, entry.Offset, entry.Size))
			if err != nil {
				return nil, fmt.Errorf("%w: copying %s: %w", common.ErrArchiveIO, entry.Name, err)
			}
			if copied != entry.Size {
				return nil, fmt.Errorf("%w: %s: expected %d bytes, read %d", common.ErrCorruptArchive, entry.Name, entry.Size, copied)
			}
			pos += copied
		}

		if err := table.Append(&moved); err != nil {
			return nil, err
		}
	}

	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flushing data region: %w", common.ErrArchiveIO, err)
	}

	header, err := ca.writeIndex(dst, pos, table)
	if err != nil {
		return nil, err
	}

	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}
	if err := os.Rename(tmpPath, opts.ArchivePath); err != nil {
		return nil, fmt.Errorf("%w: replacing %s: %w", common.ErrArchiveIO, opts.ArchivePath, err)
	}
	committed = true

	compacted := &common.ArchiveMetadata{Header: *header, Table: table}
	reclaimed := info.Size() - compacted.Size()
	ca.metrics.RecordReclaimed(reclaimed)
	log.Info().Str("archive", opts.ArchivePath).Int64("bytes_reclaimed", reclaimed).Msg("archive compacted")

	ca.metrics.LogSummary("compact")
	return compacted, nil
}
