package adzip

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	log "github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	common "github.com/beam-cloud/adzip/pkg/common"
	"github.com/beam-cloud/adzip/pkg/metrics"
)

const writeBufferSize = 512 * 1024

// treeWriter streams a subtree into the data region and records one entry
// per file or directory, parent before children.
type treeWriter struct {
	writer   *bufio.Writer
	pos      int64
	table    *common.EntryTable
	root     string
	rootName string
	self     unix.Stat_t
	opts     ArchiverOptions
	metrics  *metrics.Metrics
	err      error
}

// writeTree walks sourcePath and writes its files starting at start. It
// returns the position right after the last byte written.
func (ca *Archiver) writeTree(out *os.File, start int64, sourcePath, rootName string, table *common.EntryTable, opts ArchiverOptions) (int64, error) {
	if _, err := out.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: seeking to %d: %w", common.ErrArchiveIO, start, err)
	}

	tw := &treeWriter{
		writer:   bufio.NewWriterSize(out, writeBufferSize),
		pos:      start,
		table:    table,
		root:     filepath.Clean(sourcePath),
		rootName: rootName,
		opts:     opts,
		metrics:  ca.metrics,
	}

	if err := unix.Fstat(int(out.Fd()), &tw.self); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrArchiveIO, err)
	}

	err := godirwalk.Walk(tw.root, &godirwalk.Options{
		Callback:          tw.visit,
		ErrorCallback:     tw.onError,
		Unsorted:          opts.Unsorted,
		AllowNonDirectory: true,
	})
	if tw.err != nil {
		return 0, tw.err
	}
	if err != nil {
		return 0, err
	}

	if err := tw.writer.Flush(); err != nil {
		return 0, fmt.Errorf("%w: flushing data region: %w", common.ErrArchiveIO, err)
	}

	return tw.pos, nil
}

func (tw *treeWriter) memberName(osPathname string) string {
	rel := strings.TrimPrefix(osPathname, tw.root)
	return tw.rootName + filepath.ToSlash(rel)
}

func (tw *treeWriter) visit(osPathname string, de *godirwalk.Dirent) error {
	name := tw.memberName(osPathname)

	switch {
	case de.IsDir():
		return tw.addDirectory(osPathname, name)
	case de.IsRegular():
		return tw.addFile(osPathname, name)
	default:
		// The entry format only knows files and directories.
		tw.metrics.RecordSkipped(osPathname, fmt.Errorf("unsupported file type %v", de.ModeType()))
		return nil
	}
}

// onError halts the walk on any error that reaches godirwalk. Member open
// failures never get here; they are skipped inside visit.
func (tw *treeWriter) onError(osPathname string, err error) godirwalk.ErrorAction {
	if tw.err == nil {
		if isFatalWriteError(err) {
			tw.err = err
		} else {
			tw.err = fmt.Errorf("%w: %s: %w", common.ErrCannotOpenDirectory, osPathname, err)
		}
	}
	return godirwalk.Halt
}

func isFatalWriteError(err error) bool {
	for _, target := range []error{
		common.ErrArchiveIO,
		common.ErrCannotOpenDirectory,
		common.ErrCapacityExceeded,
		common.ErrDuplicateEntry,
		common.ErrNameTooLong,
		common.ErrInvalidName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (tw *treeWriter) appendEntry(entry *common.Entry) error {
	if err := tw.table.Append(entry); err != nil {
		return fmt.Errorf("%s: %w", entry.Name, err)
	}
	return nil
}

func (tw *treeWriter) addDirectory(osPathname, name string) error {
	if err := common.CheckName(name); err != nil {
		return err
	}

	var stat unix.Stat_t
	if err := unix.Stat(osPathname, &stat); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrCannotOpenDirectory, osPathname, err)
	}

	err := tw.appendEntry(&common.Entry{
		Kind:        common.DirectoryEntry,
		Size:        0,
		Offset:      tw.pos,
		Name:        name,
		Owner:       stat.Uid,
		Group:       stat.Gid,
		Permissions: uint32(stat.Mode) & common.PermissionMask,
	})
	if err != nil {
		return err
	}

	if tw.opts.Verbose {
		log.Info().Msgf("archiving... %s", name)
	}
	tw.metrics.RecordArchivedDirectory(name)
	return nil
}

func (tw *treeWriter) addFile(osPathname, name string) error {
	if err := common.CheckName(name); err != nil {
		return err
	}

	f, err := os.Open(osPathname)
	if err != nil {
		tw.metrics.RecordSkipped(osPathname, fmt.Errorf("%w: %w", common.ErrCannotOpenMember, err))
		return nil
	}
	defer f.Close()

	var stat unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &stat); err != nil {
		tw.metrics.RecordSkipped(osPathname, fmt.Errorf("%w: %w", common.ErrCannotOpenMember, err))
		return nil
	}

	if stat.Dev == tw.self.Dev && stat.Ino == tw.self.Ino {
		log.Debug().Str("path", osPathname).Msg("skipping the archive itself")
		return nil
	}

	offset := tw.pos
	src := &sourceReader{r: f}
	copied, err := io.Copy(tw.writer, src)
	tw.pos += copied
	if err != nil {
		if src.err != nil {
			// Bytes already copied stay in the data region, unreferenced.
			tw.metrics.RecordSkipped(osPathname, fmt.Errorf("%w: %w", common.ErrCannotOpenMember, src.err))
			return nil
		}
		return fmt.Errorf("%w: writing %s: %w", common.ErrArchiveIO, name, err)
	}

	err = tw.appendEntry(&common.Entry{
		Kind:        common.FileEntry,
		Size:        copied,
		Offset:      offset,
		Name:        name,
		Owner:       stat.Uid,
		Group:       stat.Gid,
		Permissions: uint32(stat.Mode) & common.PermissionMask,
	})
	if err != nil {
		return err
	}

	if tw.opts.Verbose {
		log.Info().Msgf("archiving... %s", name)
	}
	tw.metrics.RecordArchivedFile(name, copied)
	return nil
}

// sourceReader remembers read errors so they can be told apart from write
// errors on the archive.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}
