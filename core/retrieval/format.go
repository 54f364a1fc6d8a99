package retrieval

import (
	"fmt"
	"strings"

	"github.com/siherrmann/dealgraph/model"
)

// FormatRecords renders graph records as a markdown list, one triple per line
func FormatRecords(records []*model.GraphRecord) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString("- ")
		b.WriteString(r.String())
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTraversal renders traversal results as an indented tree of
// relationships.
func FormatTraversal(nodes []*model.TraversalNode) string {
	names := make(map[string]string, len(nodes))
	for _, n := range nodes {
		names[n.Entity.ID.String()] = n.Entity.Name
	}

	var b strings.Builder
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Distance)
		if n.Via == nil {
			fmt.Fprintf(&b, "%s%s (%s)\n", indent, n.Entity.Name, n.Entity.Type)
			continue
		}

		source, target := names[n.Via.SourceEntityID.String()], names[n.Via.TargetEntityID.String()]
		fmt.Fprintf(&b, "%s%s (%s) via %s -[%s]-> %s\n", indent, n.Entity.Name, n.Entity.Type, source, n.Via.Type, target)
	}
	return b.String()
}
