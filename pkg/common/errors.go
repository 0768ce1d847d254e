package common

import "errors"

var (
	// ErrInputNotFound is returned when the path to archive does not exist.
	ErrInputNotFound = errors.New("input path not found")

	// ErrArchiveNotFound is returned when an existing archive was expected but is missing.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrCannotCreateArchive is returned when the archive file cannot be created.
	ErrCannotCreateArchive = errors.New("cannot create archive")

	// ErrCannotOpenMember is reported for a file that could not be read during a walk.
	// The member is skipped and the walk continues.
	ErrCannotOpenMember = errors.New("cannot open member")

	// ErrCannotOpenDirectory aborts a walk when a directory cannot be enumerated.
	ErrCannotOpenDirectory = errors.New("cannot open directory")

	// ErrCorruptArchive is returned when the header or entry table cannot be trusted.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrCapacityExceeded is returned when the entry table would grow past its limit.
	ErrCapacityExceeded = errors.New("entry capacity exceeded")

	// ErrArchiveIO wraps fatal read/write failures on the archive file itself.
	ErrArchiveIO = errors.New("archive i/o error")

	ErrNameTooLong    = errors.New("entry name too long")
	ErrInvalidName    = errors.New("invalid entry name")
	ErrUnsafeName     = errors.New("unsafe entry name")
	ErrDuplicateEntry = errors.New("duplicate entry name")
	ErrMemberNotFound = errors.New("member not found")
	ErrNotAFile       = errors.New("member is not a file")
	ErrArchiveLocked  = errors.New("archive is locked by another process")
)
