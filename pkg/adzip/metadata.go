package adzip

import (
	"fmt"
	"io"
	"text/tabwriter"

	common "github.com/beam-cloud/adzip/pkg/common"
)

// WriteMetadata prints one line of attributes per entry, in table order.
func WriteMetadata(w io.Writer, entries []*common.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tTYPE\tOWNER\tGROUP\tPERMISSIONS\tSIZE\tOFFSET")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			entry.Name,
			entry.Kind,
			common.LookupOwner(entry.Owner),
			common.LookupGroup(entry.Group),
			common.FormatPermissions(entry.Kind, entry.Permissions),
			entry.Size,
			entry.Offset,
		)
	}

	return tw.Flush()
}
