package entitlement

import (
	"time"

	"github.com/google/uuid"
)

const (
	// Unlimited indicates no limit for a plan resource (-1 chosen for SQL compatibility).
	Unlimited int64 = -1
)

// Money represents a monetary amount in the smallest currency unit.
type Money struct {
	Amount   int64  // amount in smallest currency unit (cents for USD)
	Currency string // ISO 4217 currency code
}

// Plan is a commercial subscription tier with resource ceilings.
type Plan struct {
	ID          int64
	Type        string // e.g. "starter", "professional", "enterprise"
	MaxStaff    int64
	MaxRooms    int64
	MaxBranches int64
	Price       Money
	Active      bool
	Default     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Feature is a purchasable capability bundle owned by exactly one plan.
// Features are soft-deleted so historical billing records keep resolving.
type Feature struct {
	ID        int64
	PlanID    int64
	Name      string
	Price     Money
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeaturePermission maps one feature to one permission it unlocks.
// The feature must belong to the stated plan.
type FeaturePermission struct {
	PlanID       int64
	FeatureID    int64
	PermissionID int64
}

// SubscriptionStatus is the lifecycle state of a tenant's subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription ties a tenant to its current plan.
// Each tenant has at most one subscription row; TenantID is the key.
type Subscription struct {
	TenantID  uuid.UUID
	PlanID    int64
	Status    SubscriptionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
