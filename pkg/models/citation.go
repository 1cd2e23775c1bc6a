package models

import (
	"strings"
	"unicode"
)

// Cache tier names used in ToolResult metadata and the response cache.
const (
	TierLive   = "live"
	TierDaily  = "daily"
	TierStatic = "static"
	TierNone   = "none"
)

// Slugify lowercases a name and collapses non-alphanumeric runs into
// single dashes, for citation display tags.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DatabaseCitationTag renders the display text for a database
// citation: "[Source: <table>/<YYYY-MM-DD>/asset-<slug>]". Empty parts
// are elided.
func DatabaseCitationTag(table, date, assetName string) string {
	parts := make([]string, 0, 3)
	if table != "" {
		parts = append(parts, table)
	}
	if date != "" {
		parts = append(parts, date)
	}
	if assetName != "" {
		parts = append(parts, "asset-"+Slugify(assetName))
	}
	if len(parts) == 0 {
		parts = append(parts, "database")
	}
	return "[Source: " + strings.Join(parts, "/") + "]"
}

// MemoryCitationTag renders the display text for a memory citation.
func MemoryCitationTag(memoryID string) string {
	prefix := memoryID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "[Memory: " + prefix + "…]"
}

// CalculationCitationTag renders the display text for a derived-value
// citation.
func CalculationCitationTag(name string) string {
	return "[Calculated: " + name + "]"
}
