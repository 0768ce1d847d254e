package adzip

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/rs/zerolog/log"

	common "github.com/beam-cloud/adzip/pkg/common"
	"github.com/beam-cloud/adzip/pkg/metrics"
)

type ArchiverOptions struct {
	Verbose           bool
	Unsorted          bool // Keep the platform's directory order instead of sorting by name
	IgnorePermissions bool // Do not restore stored permission bits on extraction
	MaxEntries        int  // 0 means bounded only by the header's entry count
	ArchivePath       string
	SourcePath        string
	OutputPath        string
}

// Archiver runs operations against a single archive file. Callers must not run
// two operations on the same archive path at once.
type Archiver struct {
	metrics *metrics.Metrics
}

func NewArchiver() *Archiver {
	return &Archiver{metrics: metrics.NewMetrics()}
}

func (ca *Archiver) Metrics() *metrics.Metrics {
	return ca.metrics
}

// Create builds a new archive at opts.ArchivePath from opts.SourcePath,
// truncating anything already stored there.
func (ca *Archiver) Create(opts ArchiverOptions) (*common.ArchiveMetadata, error) {
	sourcePath, rootName, err := resolveSource(opts.SourcePath)
	if err != nil {
		return nil, err
	}

	outFile, err := os.OpenFile(opts.ArchivePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrCannotCreateArchive, opts.ArchivePath, err)
	}
	defer outFile.Close()

	// Write placeholder bytes for the header
	if _, err := outFile.Write(make([]byte, common.HeaderLength)); err != nil {
		return nil, fmt.Errorf("%w: writing header placeholder: %w", common.ErrArchiveIO, err)
	}

	table := common.NewEntryTable(opts.MaxEntries)
	dataEnd, err := ca.writeTree(outFile, common.HeaderLength, sourcePath, rootName, table, opts)
	if err != nil {
		return nil, err
	}

	header, err := ca.writeIndex(outFile, dataEnd, table)
	if err != nil {
		return nil, err
	}

	ca.metrics.LogSummary("create")
	return &common.ArchiveMetadata{Header: *header, Table: table}, nil
}

// Append adds opts.SourcePath to an existing archive. Existing data is never
// moved; the new data and a combined table are written after the old table.
func (ca *Archiver) Append(opts ArchiverOptions) (*common.ArchiveMetadata, error) {
	if _, err := os.Stat(opts.ArchivePath); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrArchiveNotFound, opts.ArchivePath, err)
	}

	sourcePath, rootName, err := resolveSource(opts.SourcePath)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(opts.ArchivePath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", common.ErrArchiveIO, opts.ArchivePath, err)
	}
	defer file.Close()

	metadata, err := readMetadata(file, opts.MaxEntries)
	if err != nil {
		return nil, err
	}

	kind := common.FileEntry
	if info, err := os.Stat(sourcePath); err == nil && info.IsDir() {
		kind = common.DirectoryEntry
	}

	name := metadata.Table.MakeUnique(rootName, kind)
	if name != rootName {
		log.Info().Str("name", rootName).Str("stored_as", name).Msg("name already present in archive")
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%w: seeking to end: %w", common.ErrArchiveIO, err)
	}

	// If the walk fails the header still points at the old table, so the
	// archive stays readable with trailing garbage.
	dataEnd, err := ca.writeTree(file, end, sourcePath, name, metadata.Table, opts)
	if err != nil {
		return nil, err
	}

	header, err := ca.writeIndex(file, dataEnd, metadata.Table)
	if err != nil {
		return nil, err
	}

	ca.metrics.LogSummary("append")
	return &common.ArchiveMetadata{Header: *header, Table: metadata.Table}, nil
}

// writeIndex serializes the table at dataEnd and backpatches the header.
func (ca *Archiver) writeIndex(file *os.File, dataEnd int64, table *common.EntryTable) (*common.ArchiveHeader, error) {
	if _, err := file.Seek(dataEnd, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking to entry table: %w", common.ErrArchiveIO, err)
	}

	writer := bufio.NewWriter(file)
	if err := table.Encode(writer); err != nil {
		return nil, fmt.Errorf("%w: writing entry table: %w", common.ErrArchiveIO, err)
	}
	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("%w: writing entry table: %w", common.ErrArchiveIO, err)
	}

	tableEnd := dataEnd + int64(table.Len())*common.EntryLength
	if err := file.Truncate(tableEnd); err != nil {
		return nil, fmt.Errorf("%w: truncating after entry table: %w", common.ErrArchiveIO, err)
	}

	header := &common.ArchiveHeader{
		MetadataOffset: dataEnd,
		EntryCount:     int32(table.Len()),
	}
	headerBytes, err := common.EncodeHeader(header)
	if err != nil {
		return nil, err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking to header: %w", common.ErrArchiveIO, err)
	}
	if _, err := file.Write(headerBytes); err != nil {
		return nil, fmt.Errorf("%w: writing header: %w", common.ErrArchiveIO, err)
	}

	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}

	return header, nil
}

// resolveSource returns the path to walk and the name the subtree is stored under.
func resolveSource(sourcePath string) (string, string, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", common.ErrInputNotFound, sourcePath, err)
	}

	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", common.ErrInputNotFound, sourcePath, err)
	}

	rootName := common.RootName(filepath.ToSlash(abs))
	if rootName == "" {
		return "", "", fmt.Errorf("%w: cannot derive a root name from %q", common.ErrInvalidName, sourcePath)
	}

	// A symlinked input is archived as its target, under the link's name.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", common.ErrInputNotFound, sourcePath, err)
	}

	return resolved, rootName, nil
}
