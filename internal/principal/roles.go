package principal

import (
	"slices"
	"strings"
)

// RoleMapping maps local role identifiers to Crowd group names. It is built
// once at start up and never modified, so it is safe to share.
type RoleMapping struct {
	roles  []string // sorted, iteration order for MapGroups
	groups map[string][]string
}

// NewRoleMapping copies m. Blank role or group names are dropped.
func NewRoleMapping(m map[string][]string) RoleMapping {
	rm := RoleMapping{groups: make(map[string][]string, len(m))}
	for role, groups := range m {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		var gs []string
		for _, g := range groups {
			if g = strings.TrimSpace(g); g != "" && !slices.Contains(gs, g) {
				gs = append(gs, g)
			}
		}
		rm.groups[role] = gs
		rm.roles = append(rm.roles, role)
	}
	slices.Sort(rm.roles)
	return rm
}

// Empty reports whether no role is configured.
func (m RoleMapping) Empty() bool { return len(m.roles) == 0 }

// Roles lists the configured roles, sorted.
func (m RoleMapping) Roles() []string { return slices.Clone(m.roles) }

// Groups returns the groups configured for role, in configuration order.
func (m RoleMapping) Groups(role string) []string {
	return slices.Clone(m.groups[role])
}

// MapGroups returns, sorted, every role whose group set intersects groups.
func (m RoleMapping) MapGroups(groups []string) []string {
	member := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		member[g] = struct{}{}
	}

	out := []string{}
	for _, role := range m.roles {
		for _, g := range m.groups[role] {
			if _, ok := member[g]; ok {
				out = append(out, role)
				break
			}
		}
	}
	return out
}
