// Package load is the core of dcx: it turns a set of source files plus a
// declarative load strategy into a deterministic sequence of staging,
// schema-reconciliation, transactional mutation, and audit operations.
package load

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/datacampus/dcx/internal/format"
	"github.com/datacampus/dcx/internal/warehouse"
)

// Strategy governs how new data coexists with existing rows.
type Strategy int

const (
	// Append inserts without touching existing rows.
	Append Strategy = iota
	// Overwrite deletes the rows matching the request's tag set first.
	Overwrite
	// Replace truncates the whole table first.
	Replace
)

// ParseStrategy parses a strategy flag value. "truncate" is accepted as a
// synonym for "replace".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "append":
		return Append, nil
	case "overwrite", "":
		return Overwrite, nil
	case "replace", "truncate":
		return Replace, nil
	}
	return Append, fmt.Errorf("unknown strategy %q (expected append, overwrite, or replace)", s)
}

func (s Strategy) String() string {
	switch s {
	case Append:
		return "append"
	case Overwrite:
		return "overwrite"
	case Replace:
		return "replace"
	}
	return "unknown"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Request is the immutable description of one load. Construct it, call
// Validate once, and never mutate it afterwards.
type Request struct {
	Schema string
	Table  string

	Tags     map[string]string
	Strategy Strategy
	Format   format.Kind

	SkipHeader int

	CreateTable     bool
	CreateSchema    bool
	ExpandColumns   bool
	TrackMostRecent bool
	Audit           bool
	SanitizeTags    bool

	Grants  []string
	Include []string
}

// ParseDest splits a destination identifier into schema and table. A bare
// name takes the connection's schema (or "public"); "schema.table" is
// explicit. Cross-database destinations are rejected.
func ParseDest(dest, connSchema string) (schema, table string, err error) {
	parts := strings.Split(dest, ".")
	switch len(parts) {
	case 1:
		schema = connSchema
		if schema == "" {
			schema = "public"
		}
		return schema, parts[0], nil
	case 2:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("destination %q: cross-database destinations are not supported", dest)
}

// Validate checks the request and normalizes tag keys. SanitizeTags maps
// keys through the column sanitizer; otherwise keys must already be valid
// identifiers.
func (r *Request) Validate() error {
	if r.Table == "" {
		return fmt.Errorf("destination table is required")
	}
	if r.Schema == "" {
		return fmt.Errorf("destination schema is required")
	}
	if r.SkipHeader < 0 {
		return fmt.Errorf("skip-header must be non-negative")
	}
	if r.SanitizeTags && len(r.Tags) > 0 {
		clean := make(map[string]string, len(r.Tags))
		for k, v := range r.Tags {
			clean[format.SanitizeColumn(k)] = v
		}
		r.Tags = clean
	}
	for k := range r.Tags {
		if !identRe.MatchString(k) {
			return fmt.Errorf("invalid tag key %q (must be an identifier, or use --sanitize)", k)
		}
	}
	return nil
}

// TagKeys returns the tag keys in sorted order, so every generated
// statement lists tag columns deterministically.
func (r *Request) TagKeys() []string {
	keys := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Qualified returns the quoted, schema-qualified destination identifier.
func (r *Request) Qualified() string {
	return warehouse.QualifiedIdent(r.Schema, r.Table)
}
