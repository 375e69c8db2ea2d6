package cache

import "strings"

// Hierarchical key segment labels, ordered from coarsest to finest.
const (
	segConnection = "conn"
	segDatabase   = "db"
	segSchema     = "schema"
	segCatalog    = "cat"
)

// BuildKey renders a hierarchical identifier tuple into a cache key of the
// form "conn:<id>:db:<id>:schema:<id>:cat:<id>". An empty identifier ends
// the key; it and every deeper segment are omitted rather than rendered as
// empty placeholders. BuildKey is deterministic and never fails.
func BuildKey(connectionID, databaseID, schemaID, catalogID string) string {
	var b strings.Builder
	b.WriteString(segConnection)
	b.WriteByte(':')
	b.WriteString(connectionID)

	segments := [...]struct{ label, id string }{
		{segDatabase, databaseID},
		{segSchema, schemaID},
		{segCatalog, catalogID},
	}
	for _, seg := range segments {
		if seg.id == "" {
			break
		}
		b.WriteByte(':')
		b.WriteString(seg.label)
		b.WriteByte(':')
		b.WriteString(seg.id)
	}
	return b.String()
}

// ConnectionPrefix returns the prefix shared by every key BuildKey produces
// for a connection. The trailing colon is load-bearing: it keeps "conn:x:"
// from matching keys of an unrelated connection id that merely starts with
// "x" (e.g. "conn:xy:...").
func ConnectionPrefix(connectionID string) string {
	return segConnection + ":" + connectionID + ":"
}
