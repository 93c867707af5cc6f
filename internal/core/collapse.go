package core

import (
	"sort"
	"strings"
)

// CollapseState records which groups are collapsed. Groups absent from the
// map are expanded. Keys are group keys, not positions, so state survives
// re-sorting and filtering of the same logical group.
type CollapseState map[GroupKey]bool

// IsCollapsed reports whether the group is collapsed.
func (c CollapseState) IsCollapsed(key GroupKey) bool {
	return c[key]
}

// Toggle flips one group and returns its new state. Nested flags under the
// group are left untouched.
func (c CollapseState) Toggle(key GroupKey) bool {
	v := !c[key]
	c.Set(key, v)
	return v
}

// Set assigns a group's collapsed flag.
func (c CollapseState) Set(key GroupKey, collapsed bool) {
	if collapsed {
		c[key] = true
		return
	}
	delete(c, key)
}

// Clone returns an independent copy.
func (c CollapseState) Clone() CollapseState {
	out := make(CollapseState, len(c))
	for k, v := range c {
		if v {
			out[k] = true
		}
	}
	return out
}

// Snapshot returns a canonical string of the collapsed keys, suitable for cache keys.
func (c CollapseState) Snapshot() string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v {
			keys = append(keys, string(k))
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, "\x1f")
}
