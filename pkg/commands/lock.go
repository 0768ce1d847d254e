package commands

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	common "github.com/beam-cloud/adzip/pkg/common"
)

// The lock file is left in place after release.
func lockPath(archivePath string) string {
	return fmt.Sprintf("%s.lock", archivePath)
}

// lockArchive takes the exclusive lock that mutating commands hold for their
// whole run.
func lockArchive(archivePath string) (func(), error) {
	fileLock := flock.New(lockPath(archivePath))

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: locking %s: %w", common.ErrArchiveIO, archivePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", common.ErrArchiveLocked, archivePath)
	}

	return func() { unlock(fileLock) }, nil
}

// rlockArchive takes a shared lock so readers never see a half-written table.
func rlockArchive(archivePath string) (func(), error) {
	if err := requireArchive(archivePath); err != nil {
		return nil, err
	}

	fileLock := flock.New(lockPath(archivePath))

	locked, err := fileLock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("%w: locking %s: %w", common.ErrArchiveIO, archivePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", common.ErrArchiveLocked, archivePath)
	}

	return func() { unlock(fileLock) }, nil
}

// requireArchive keeps lock files from appearing next to archives that do
// not exist.
func requireArchive(archivePath string) error {
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("%w: %s", common.ErrArchiveNotFound, archivePath)
	}
	return nil
}

func unlock(fileLock *flock.Flock) {
	if err := fileLock.Unlock(); err != nil {
		log.Warn().Err(err).Str("path", fileLock.Path()).Msg("unable to release archive lock")
	}
}
