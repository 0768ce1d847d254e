package common

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

/*

An archive is laid out as:

	Header    ArchiveHeader (MetadataOffset int64, EntryCount int32)
	Data      raw file contents, in pre-order
	Table     EntryCount fixed-width rows starting at MetadataOffset

Every integer is little-endian. Appends write new data and a new table after
the old table; the old table becomes unreferenced space.

*/

const (
	ArchiveExtension = ".ad"

	HeaderLength    = 12
	NameFieldLength = 256
	EntryLength     = 1 + 8 + 8 + NameFieldLength + 4 + 4 + 4

	MaxNameLength = NameFieldLength - 1
	MaxEntryCount = math.MaxInt32
)

type entryRow struct {
	Kind        uint8
	Size        int64
	Offset      int64
	Name        [NameFieldLength]byte
	Owner       uint32
	Group       uint32
	Permissions uint32
}

func EncodeHeader(header *ArchiveHeader) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeHeader(headerBytes []byte) (*ArchiveHeader, error) {
	if len(headerBytes) < HeaderLength {
		return nil, fmt.Errorf("%w: short header (%d bytes)", ErrCorruptArchive, len(headerBytes))
	}
	header := new(ArchiveHeader)
	if err := binary.Read(bytes.NewReader(headerBytes), binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	return header, nil
}

// CheckName reports whether name fits the fixed-width name field.
func CheckName(name string) error {
	if name == "" || strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes, limit is %d: %s", ErrNameTooLong, len(name), MaxNameLength, name)
	}
	return nil
}

// EncodeEntry writes one EntryLength-byte row; the name is NUL-padded.
func EncodeEntry(w io.Writer, entry *Entry) error {
	if err := CheckName(entry.Name); err != nil {
		return err
	}

	row := entryRow{
		Kind:        uint8(entry.Kind),
		Size:        entry.Size,
		Offset:      entry.Offset,
		Owner:       entry.Owner,
		Group:       entry.Group,
		Permissions: entry.Permissions,
	}
	copy(row.Name[:], entry.Name)

	return binary.Write(w, binary.LittleEndian, &row)
}

func DecodeEntry(rowBytes []byte) (*Entry, error) {
	if len(rowBytes) < EntryLength {
		return nil, fmt.Errorf("%w: short entry row (%d bytes)", ErrCorruptArchive, len(rowBytes))
	}

	var row entryRow
	if err := binary.Read(bytes.NewReader(rowBytes), binary.LittleEndian, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	kind := EntryKind(row.Kind)
	if kind != FileEntry && kind != DirectoryEntry {
		return nil, fmt.Errorf("%w: unknown entry kind %d", ErrCorruptArchive, row.Kind)
	}

	end := bytes.IndexByte(row.Name[:], 0)
	if end < 0 {
		return nil, fmt.Errorf("%w: entry name is not terminated", ErrCorruptArchive)
	}
	if end == 0 {
		return nil, fmt.Errorf("%w: empty entry name", ErrCorruptArchive)
	}
	if row.Size < 0 || row.Offset < 0 {
		return nil, fmt.Errorf("%w: negative size or offset for %s", ErrCorruptArchive, row.Name[:end])
	}

	return &Entry{
		Kind:        kind,
		Size:        row.Size,
		Offset:      row.Offset,
		Name:        string(row.Name[:end]),
		Owner:       row.Owner,
		Group:       row.Group,
		Permissions: row.Permissions,
	}, nil
}
