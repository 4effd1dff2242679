package cache

import (
	"fmt"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key this package writes.
const KeyPrefix = "rm"

// CacheKey identifies one cached query result.
type CacheKey struct {
	// Operation is the GraphQL operation name (e.g., "GetCharacters").
	Operation string

	// Variables are the query variables. Empty values are left out of the key,
	// matching how the query omits them.
	Variables map[string]any
}

// String generates a deterministic cache key string.
// Format: rm:operation:var1=val1:var2=val2 with variables sorted by name.
//
// Example:
//
//	rm:GetCharacters:page=2:species=Human:status=Dead
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if op := strings.TrimSpace(k.Operation); op != "" {
		parts = append(parts, op)
	}

	names := make([]string, 0, len(k.Variables))
	for name, value := range k.Variables {
		if isEmpty(value) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, k.Variables[name]))
	}

	return strings.Join(parts, ":")
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}
