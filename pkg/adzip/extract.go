package adzip

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/rs/zerolog/log"

	common "github.com/beam-cloud/adzip/pkg/common"
)

const (
	defaultDirectoryMode = 0755
	defaultFileMode      = 0644
)

type extractedDirectory struct {
	path string
	mode os.FileMode
}

// Extract recreates every entry of the archive under opts.OutputPath, or the
// current directory when it is empty. Extracting twice into the same place
// leaves the same result.
func (ca *Archiver) Extract(opts ArchiverOptions) error {
	file, err := openArchive(opts.ArchivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	metadata, err := readMetadata(file, 0)
	if err != nil {
		return err
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		if outputPath, err = os.Getwd(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(outputPath, defaultDirectoryMode); err != nil {
		return fmt.Errorf("creating output directory %s: %w", outputPath, err)
	}

	var dirs []extractedDirectory
	for _, entry := range metadata.Table.Entries() {
		if err := common.ValidateName(entry.Name); err != nil {
			return err
		}

		dest := filepath.Join(outputPath, filepath.FromSlash(entry.Name))

		if opts.Verbose {
			log.Info().Msgf("extracting... %s", entry.Name)
		}

		if entry.IsDir() {
			mode, err := ca.extractDirectory(dest, entry, opts)
			if err != nil {
				return err
			}
			dirs = append(dirs, extractedDirectory{path: dest, mode: mode})
			continue
		}

		if err := ca.extractFile(file, dest, entry, opts); err != nil {
			return err
		}
	}

	// Directory modes are applied last, deepest first.
	if !opts.IgnorePermissions {
		for i := len(dirs) - 1; i >= 0; i-- {
			if err := os.Chmod(dirs[i].path, dirs[i].mode); err != nil {
				return fmt.Errorf("setting mode on %s: %w", dirs[i].path, err)
			}
		}
	}

	ca.metrics.LogSummary("extract")
	return nil
}

func entryMode(entry *common.Entry, fallback os.FileMode) os.FileMode {
	// Archives without stored attributes carry zero permissions.
	if entry.Permissions == 0 {
		return fallback
	}
	return common.FileMode(entry.Permissions)
}

func (ca *Archiver) extractDirectory(dest string, entry *common.Entry, opts ArchiverOptions) (os.FileMode, error) {
	mode := entryMode(entry, defaultDirectoryMode)

	if err := os.MkdirAll(dest, defaultDirectoryMode); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dest, err)
	}

	if !opts.IgnorePermissions {
		// Keep the directory writable until its contents are in place.
		if err := os.Chmod(dest, mode|0700); err != nil {
			return 0, fmt.Errorf("setting mode on %s: %w", dest, err)
		}
	}

	ca.metrics.RecordExtractedDirectory(entry.Name)
	return mode, nil
}

func (ca *Archiver) extractFile(archive *os.File, dest string, entry *common.Entry, opts ArchiverOptions) error {
	mode := entryMode(entry, defaultFileMode)

	if err := os.MkdirAll(filepath.Dir(dest), defaultDirectoryMode); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	// A previous extraction may have left a read-only copy behind.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing %s: %w", dest, err)
	}

	outFile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFileMode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", dest, err)
	}
	defer outFile.Close()

	// Copy exactly Size bytes starting at the entry's offset
	copied, err := io.Copy(outFile, io.NewSectionReader(archive, entry.Offset, entry.Size))
	if err != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, err)
	}
	if copied != entry.Size {
		return fmt.Errorf("%w: %s: expected %d bytes, read %d", common.ErrCorruptArchive, entry.Name, entry.Size, copied)
	}

	if !opts.IgnorePermissions {
		if err := outFile.Chmod(mode); err != nil {
			return fmt.Errorf("setting mode on %s: %w", dest, err)
		}
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	ca.metrics.RecordExtractedFile(entry.Name, copied)
	return nil
}
