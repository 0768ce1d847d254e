package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RootName returns the last component of path, the name under which the
// subtree is stored. Trailing separators are ignored, so "proj/" yields "proj".
// A path with no separator is returned unchanged.
func RootName(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// UniqueName returns candidate if taken reports it free. Otherwise a counter
// starting at 1 is inserted before the last extension of a file name
// ("notes.txt" becomes "notes1.txt") or appended to a directory name
// ("v1.2" becomes "v1.21") until a free name is found.
func UniqueName(candidate string, kind EntryKind, taken func(string) bool) string {
	if !taken(candidate) {
		return candidate
	}

	base, ext := candidate, ""
	if kind == FileEntry {
		base, ext = splitExtension(candidate)
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i) + ext
		if !taken(name) {
			return name
		}
	}
}

// splitExtension splits at the last '.' of the final path component. A leading
// dot (".bashrc") is part of the name, not an extension.
func splitExtension(name string) (string, string) {
	start := strings.LastIndexByte(name, '/') + 1
	dot := strings.LastIndexByte(name[start:], '.')
	if dot <= 0 {
		return name, ""
	}
	return name[:start+dot], name[start+dot:]
}

// ValidateName rejects names that would escape or replace the extraction
// root. Every segment must be a plain name: no empty, "." or ".." segments.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrUnsafeName, name)
		}
	}
	return nil
}

// EnsureExtension appends the archive extension unless path already has it.
func EnsureExtension(path string) string {
	if strings.HasSuffix(path, ArchiveExtension) {
		return path
	}
	return path + ArchiveExtension
}

// NextAvailablePath returns path, or path with a counter inserted before the
// archive extension, such that no file exists there yet.
func NextAvailablePath(path string) string {
	path = EnsureExtension(path)
	base := strings.TrimSuffix(path, ArchiveExtension)

	exists := func(name string) bool {
		_, err := os.Lstat(name)
		return err == nil
	}

	if !exists(path) {
		return path
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i) + ArchiveExtension
		if !exists(name) {
			return name
		}
	}
}
