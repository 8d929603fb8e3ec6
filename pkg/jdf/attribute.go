package jdf

// AttributeRef is one row of the fixed-code table. Records across the
// batch reference these by code; the merger deduplicates them globally
// on (Value, Reserved).
type AttributeRef struct {
	Code     int
	Value    string
	Reserved string
}
