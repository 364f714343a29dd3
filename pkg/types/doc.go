// Package types defines the shared Go types handed from a reading producer to
// the uploader. A Reading is the canonical in-memory representation of one
// archive record: a timestamp, the unit system its values are expressed in,
// and a flat map of observation name to value.
package types
