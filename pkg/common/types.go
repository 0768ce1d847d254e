package common

import (
	"io"

	"github.com/tidwall/btree"
)

type EntryKind uint8

const (
	FileEntry      EntryKind = 0
	DirectoryEntry EntryKind = 1
)

func (k EntryKind) String() string {
	switch k {
	case FileEntry:
		return "file"
	case DirectoryEntry:
		return "directory"
	}
	return "unknown"
}

// Entry describes one archived file or directory.
type Entry struct {
	Kind        EntryKind
	Size        int64 // Length of the member's data, 0 for directories
	Offset      int64 // Position of the member's data in the archive
	Name        string
	Owner       uint32
	Group       uint32
	Permissions uint32
}

// IsDir returns true if the Entry represents a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == DirectoryEntry
}

// ArchiveHeader is stored at offset 0 of every archive.
type ArchiveHeader struct {
	MetadataOffset int64
	EntryCount     int32
}

type ArchiveMetadata struct {
	Header ArchiveHeader
	Table  *EntryTable
}

// Size is the length of a well-formed archive with this header.
func (m *ArchiveMetadata) Size() int64 {
	return m.Header.MetadataOffset + int64(m.Header.EntryCount)*EntryLength
}

// EntryTable keeps entries in insertion (pre-order) order and indexes them by name.
type EntryTable struct {
	entries  []*Entry
	index    *btree.BTree
	capacity int
}

// NewEntryTable creates an empty table. A capacity of 0 or less means the
// table is only bounded by the 32-bit entry count in the header.
func NewEntryTable(capacity int) *EntryTable {
	compare := func(a, b interface{}) bool {
		return a.(*Entry).Name < b.(*Entry).Name
	}
	return &EntryTable{
		index:    btree.New(compare),
		capacity: capacity,
	}
}

func (t *EntryTable) limit() int {
	if t.capacity > 0 && t.capacity < MaxEntryCount {
		return t.capacity
	}
	return MaxEntryCount
}

// Append adds an entry at the end of the table.
func (t *EntryTable) Append(entry *Entry) error {
	if len(t.entries) >= t.limit() {
		return ErrCapacityExceeded
	}
	if t.Has(entry.Name) {
		return ErrDuplicateEntry
	}
	t.entries = append(t.entries, entry)
	t.index.Set(entry)
	return nil
}

func (t *EntryTable) Has(name string) bool {
	return t.FindByName(name) != nil
}

func (t *EntryTable) FindByName(name string) *Entry {
	item := t.index.Get(&Entry{Name: name})
	if item == nil {
		return nil
	}
	return item.(*Entry)
}

// MakeUnique returns candidate, or a renamed variant of it that no entry uses yet.
func (t *EntryTable) MakeUnique(candidate string, kind EntryKind) string {
	return UniqueName(candidate, kind, t.Has)
}

// Entries returns the entries in table order. The slice must not be modified.
func (t *EntryTable) Entries() []*Entry {
	return t.entries
}

func (t *EntryTable) Len() int {
	return len(t.entries)
}

// Encode writes every entry as a fixed-width row.
func (t *EntryTable) Encode(w io.Writer) error {
	for _, entry := range t.entries {
		if err := EncodeEntry(w, entry); err != nil {
			return err
		}
	}
	return nil
}
