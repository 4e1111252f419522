package storage

import (
	"fmt"
	"strings"
)

// NormalizeKey converts a lookup key value to a canonical string form,
// suitable for in-memory cache keys (e.g. "Willamette" or "8429529").
//
// Backends must not assume a particular underlying type for scanned keys
// (TEXT can come back as string or []byte depending on the driver); this
// helper keeps lookup maps consistent across backends.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
