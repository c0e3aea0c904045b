package permission

import (
	"strings"
	"time"
)

// Scope narrows who a permission applies to once granted.
type Scope string

const (
	ScopeAll    Scope = "all"    // tenant-independent, valid everywhere
	ScopeOwn    Scope = "own"    // only records owned by the acting user
	ScopeTeam   Scope = "team"   // the acting user's team
	ScopeBranch Scope = "branch" // the acting user's branch
	ScopeFirm   Scope = "firm"   // the acting user's firm
)

// Valid reports whether the scope is one of the defined values.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeOwn, ScopeTeam, ScopeBranch, ScopeFirm:
		return true
	}
	return false
}

// Permission is an atomic resource.action capability.
type Permission struct {
	ID          int64
	Key         string // unique, format "resource.action"
	Resource    string
	Action      string
	Category    string
	Scope       Scope
	System      bool // provisioned at deployment, protected from non-admin mutation
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor is the caller identity a write operation is performed as.
// Only super-admin actors may mutate system permissions.
type Actor interface {
	IsSuperAdmin() bool
}

// KeyDelimiter separates the resource and action parts of a permission key.
const KeyDelimiter = "."

// ParseKey splits a permission key into its resource and action parts,
// validating the "resource.action" format. Both parts must be non-empty and
// consist of lowercase letters, digits, underscores, or hyphens.
func ParseKey(key string) (resource, action string, err error) {
	parts := strings.Split(key, KeyDelimiter)
	if len(parts) != 2 || !validKeyPart(parts[0]) || !validKeyPart(parts[1]) {
		return "", "", ErrInvalidKey
	}
	return parts[0], parts[1], nil
}

// MakeKey joins a resource and action into a permission key.
func MakeKey(resource, action string) string {
	return resource + KeyDelimiter + action
}

func validKeyPart(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// Filter narrows catalog listings.
// The zero value hides system permissions, which is what assignment pickers
// want; internal consumers set IncludeSystem to see the full catalog.
type Filter struct {
	Search        string // substring match on key, category, and description
	Category      string
	Resource      string
	IncludeSystem bool
}

// Matches reports whether the permission passes the filter.
func (f Filter) Matches(p Permission) bool {
	if !f.IncludeSystem && p.System {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Resource != "" && p.Resource != f.Resource {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Key), needle) &&
			!strings.Contains(strings.ToLower(p.Category), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}
