package adzip

import (
	"fmt"
	"io"
	"strings"

	common "github.com/beam-cloud/adzip/pkg/common"
)

const hierarchyIndent = "  "

// WriteHierarchy prints entries as an indented tree. Parent/child relations
// come only from name prefixes, and siblings keep their table order.
func WriteHierarchy(w io.Writer, entries []*common.Entry) error {
	return writeLevel(w, entries, 0, "")
}

func writeLevel(w io.Writer, entries []*common.Entry, level int, parentPath string) error {
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name, parentPath) {
			continue
		}

		remainder := entry.Name[len(parentPath):]
		if !isDirectChild(remainder) {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat(hierarchyIndent, level), remainder); err != nil {
			return err
		}

		if entry.IsDir() {
			if err := writeLevel(w, entries, level+1, parentPath+remainder+"/"); err != nil {
				return err
			}
		}
	}
	return nil
}

// isDirectChild reports whether remainder is a single path segment, allowing
// one trailing '/'.
func isDirectChild(remainder string) bool {
	if remainder == "" {
		return false
	}
	i := strings.IndexByte(remainder, '/')
	return i < 0 || i == len(remainder)-1
}
