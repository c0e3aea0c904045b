package menu

import (
	"time"

	"github.com/google/uuid"
)

// Match decides how an entry's required permissions are evaluated against
// the user's effective set.
type Match string

const (
	// MatchAny shows the entry when the user holds at least one required
	// permission, or when no permissions are required at all.
	MatchAny Match = "any"
	// MatchAll shows the entry only when the user holds every required
	// permission.
	MatchAll Match = "all"
	// MatchNone hides the entry from holders of any required permission,
	// for items that conflict with an elevated capability.
	MatchNone Match = "none"
)

// Valid reports whether the match type is one of the known values.
func (m Match) Valid() bool {
	switch m {
	case MatchAny, MatchAll, MatchNone:
		return true
	}
	return false
}

// Status is the lifecycle state of an entry. Only active entries are
// evaluated for visibility; inactive ones are excluded entirely.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Entry is one navigation node. A nil TenantID marks a platform-wide entry;
// tenant-scoped entries extend the global catalog for one tenant.
type Entry struct {
	ID            int64
	TenantID      *uuid.UUID
	Key           string // unique within its tenant scope
	ParentKey     *string
	DisplayName   string
	Icon          string
	Route         string
	DisplayOrder  int
	Match         Match
	PermissionIDs []int64
	Status        Status
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Visible evaluates the entry's permission rule against the user's effective
// permission id set. Lifecycle gating happens before this is called.
func (e Entry) Visible(effective map[int64]struct{}) bool {
	switch e.Match {
	case MatchAll:
		for _, id := range e.PermissionIDs {
			if _, ok := effective[id]; !ok {
				return false
			}
		}
		return true
	case MatchNone:
		for _, id := range e.PermissionIDs {
			if _, ok := effective[id]; ok {
				return false
			}
		}
		return true
	default: // MatchAny
		if len(e.PermissionIDs) == 0 {
			return true
		}
		for _, id := range e.PermissionIDs {
			if _, ok := effective[id]; ok {
				return true
			}
		}
		return false
	}
}

// Node is an entry placed in the assembled tree.
type Node struct {
	Entry
	Children []Node
}

// Filter narrows catalog listings. A nil TenantID lists the global catalog
// only; a set TenantID lists global entries plus that tenant's own.
type Filter struct {
	TenantID        *uuid.UUID
	ParentKey       *string
	IncludeInactive bool // also return inactive and draft entries
}
