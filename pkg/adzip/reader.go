package adzip

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	common "github.com/beam-cloud/adzip/pkg/common"
)

// ExtractMetadata loads the header and entry table of an archive.
func (ca *Archiver) ExtractMetadata(archivePath string) (*common.ArchiveMetadata, error) {
	file, err := openArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readMetadata(file, 0)
}

func openArchive(archivePath string) (*os.File, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrArchiveNotFound, archivePath)
		}
		return nil, fmt.Errorf("%w: opening %s: %w", common.ErrArchiveIO, archivePath, err)
	}
	return file, nil
}

func readMetadata(file *os.File, capacity int) (*common.ArchiveMetadata, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}
	size := info.Size()

	// Read and decode the header
	headerBytes := make([]byte, common.HeaderLength)
	if _, err := file.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", common.ErrCorruptArchive, err)
	}

	header, err := common.DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	if header.MetadataOffset < common.HeaderLength || header.MetadataOffset > size {
		return nil, fmt.Errorf("%w: metadata offset %d outside of file (size %d)", common.ErrCorruptArchive, header.MetadataOffset, size)
	}
	if header.EntryCount < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", common.ErrCorruptArchive, header.EntryCount)
	}
	if capacity > 0 && int(header.EntryCount) > capacity {
		return nil, fmt.Errorf("%w: archive holds %d entries, limit is %d", common.ErrCapacityExceeded, header.EntryCount, capacity)
	}

	available := (size - header.MetadataOffset) / common.EntryLength
	if int64(header.EntryCount) > available {
		return nil, fmt.Errorf("%w: header declares %d entries, only %d present", common.ErrCorruptArchive, header.EntryCount, available)
	}

	tableLength := int64(header.EntryCount) * common.EntryLength
	reader := bufio.NewReader(io.NewSectionReader(file, header.MetadataOffset, tableLength))

	table := common.NewEntryTable(capacity)
	row := make([]byte, common.EntryLength)
	for i := int32(0); i < header.EntryCount; i++ {
		if _, err := io.ReadFull(reader, row); err != nil {
			return nil, fmt.Errorf("%w: reading entry %d: %w", common.ErrCorruptArchive, i, err)
		}

		entry, err := common.DecodeEntry(row)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if entry.Kind == common.FileEntry && !withinDataRegion(entry, header.MetadataOffset) {
			return nil, fmt.Errorf("%w: data for %s (offset %d, size %d) is outside the data region", common.ErrCorruptArchive, entry.Name, entry.Offset, entry.Size)
		}

		if err := table.Append(entry); err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				return nil, fmt.Errorf("%w: duplicate entry %s", common.ErrCorruptArchive, entry.Name)
			}
			return nil, err
		}
	}

	return &common.ArchiveMetadata{Header: *header, Table: table}, nil
}

// withinDataRegion reports whether the entry's bytes lie between the header
// and dataEnd. Written without offset+size so huge sizes cannot wrap.
func withinDataRegion(entry *common.Entry, dataEnd int64) bool {
	return entry.Offset >= common.HeaderLength &&
		entry.Offset <= dataEnd &&
		entry.Size <= dataEnd-entry.Offset
}
