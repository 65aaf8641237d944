package gate

import (
	"sort"
	"strings"
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "devis:create", "ordre:manage")
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission covers a requested permission.
// "*:*" matches all, "devis:*" matches every devis action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == WildcardAll
}

// PermissionSet is an immutable, de-duplicated and sorted list of permissions.
type PermissionSet struct {
	perms []Permission
}

// NewPermissionSet builds a set, dropping duplicates and empty codes.
func NewPermissionSet(perms ...Permission) PermissionSet {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return PermissionSet{perms: out}
}

// Union returns a new set holding the permissions of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	all := make([]Permission, 0, len(s.perms)+len(other.perms))
	all = append(all, s.perms...)
	all = append(all, other.perms...)
	return NewPermissionSet(all...)
}

// Allows reports whether any permission of the set matches requested.
func (s PermissionSet) Allows(requested Permission) bool {
	for _, p := range s.perms {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// Contains reports an exact membership, without wildcard expansion.
func (s PermissionSet) Contains(p Permission) bool {
	i := sort.Search(len(s.perms), func(i int) bool { return s.perms[i] >= p })
	return i < len(s.perms) && s.perms[i] == p
}

func (s PermissionSet) Len() int { return len(s.perms) }

// List returns a copy of the permissions in sorted order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, len(s.perms))
	copy(out, s.perms)
	return out
}

// Strings is List as plain strings, handy for JSON payloads.
func (s PermissionSet) Strings() []string {
	out := make([]string, len(s.perms))
	for i, p := range s.perms {
		out[i] = string(p)
	}
	return out
}
