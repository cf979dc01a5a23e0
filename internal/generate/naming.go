package generate

import (
	"strings"
	"unicode"

	"loom/internal/entity"
)

// SnakeCase converts an entity name like "UserProfile" to "user_profile".
// Runs of upper-case letters are kept together ("HTTPServer" -> "http_server").
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TableName derives the migration table name for a record, honoring the
// "table" option when present.
func TableName(rec entity.Record, opts Options) string {
	if opts != nil {
		if t, ok := opts["table"].(string); ok && t != "" {
			return t
		}
	}
	return SnakeCase(rec.Name) + "s"
}
