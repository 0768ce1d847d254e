package adzip

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the logging verbosity for the adzip library.
// Valid levels: "debug", "info", "warn", "error", "disabled"
// Use "debug" to see every archived and extracted member
// Use "info" for high-level operation logs (default)
// Use "disabled" to suppress all logs
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled", "none", "off":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		return fmt.Errorf("invalid log level %q: must be one of: debug, info, warn, error, disabled", level)
	}
	return nil
}

type CreateOptions struct {
	InputPath  string
	OutputPath string
	Verbose    bool
	Unsorted   bool
	MaxEntries int
}

type AppendOptions struct {
	ArchivePath string
	InputPath   string
	Verbose     bool
	Unsorted    bool
	MaxEntries  int
}

type ExtractOptions struct {
	InputFile         string
	OutputPath        string
	Verbose           bool
	IgnorePermissions bool
}

// Create Archive
func CreateArchive(options CreateOptions) error {
	log.Info().Msgf("creating archive from %s to %s", options.InputPath, options.OutputPath)

	a := NewArchiver()
	metadata, err := a.Create(ArchiverOptions{
		SourcePath:  options.InputPath,
		ArchivePath: options.OutputPath,
		Verbose:     options.Verbose,
		Unsorted:    options.Unsorted,
		MaxEntries:  options.MaxEntries,
	})
	if err != nil {
		return err
	}

	log.Info().Int32("entries", metadata.Header.EntryCount).Msg("archive created successfully")
	return nil
}

// Append to Archive
func AppendArchive(options AppendOptions) error {
	log.Info().Msgf("appending %s to archive %s", options.InputPath, options.ArchivePath)

	a := NewArchiver()
	metadata, err := a.Append(ArchiverOptions{
		SourcePath:  options.InputPath,
		ArchivePath: options.ArchivePath,
		Verbose:     options.Verbose,
		Unsorted:    options.Unsorted,
		MaxEntries:  options.MaxEntries,
	})
	if err != nil {
		return err
	}

	log.Info().Int32("entries", metadata.Header.EntryCount).Msg("archive appended successfully")
	return nil
}

// Extract Archive
func ExtractArchive(options ExtractOptions) error {
	log.Info().Msgf("extracting archive: %s", options.InputFile)

	a := NewArchiver()
	err := a.Extract(ArchiverOptions{
		ArchivePath:       options.InputFile,
		OutputPath:        options.OutputPath,
		Verbose:           options.Verbose,
		IgnorePermissions: options.IgnorePermissions,
	})
	if err != nil {
		return err
	}

	log.Info().Msg("archive extracted successfully")
	return nil
}

// ListMetadata writes the attributes of every entry in the archive to w.
func ListMetadata(archivePath string, w io.Writer) error {
	metadata, err := NewArchiver().ExtractMetadata(archivePath)
	if err != nil {
		return err
	}
	return WriteMetadata(w, metadata.Table.Entries())
}

// RenderHierarchy writes the archive's tree to w.
func RenderHierarchy(archivePath string, w io.Writer) error {
	metadata, err := NewArchiver().ExtractMetadata(archivePath)
	if err != nil {
		return err
	}
	return WriteHierarchy(w, metadata.Table.Entries())
}

// Compact Archive
func CompactArchive(archivePath string) error {
	log.Info().Msgf("compacting archive: %s", archivePath)

	_, err := NewArchiver().Compact(ArchiverOptions{ArchivePath: archivePath})
	return err
}
