package domain

import (
	"maps"
	"slices"
)

// CloneMap делает глубокую копию JSON-подобной map.
// Вложенные map[string]any и []any копируются, скаляры переиспользуются.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := maps.Clone(m)
	for k, v := range c {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		c := slices.Clone(t)
		for i, item := range c {
			c[i] = cloneValue(item)
		}
		return c
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
