package entitlement

import "errors"

// Domain errors for entitlement operations.
var (
	// ErrPlanNotFound is returned when a referenced plan does not exist.
	ErrPlanNotFound = errors.New("entitlement.plan_not_found")

	// ErrFeatureNotFound is returned when a referenced feature does not exist
	// or has been soft-deleted.
	ErrFeatureNotFound = errors.New("entitlement.feature_not_found")

	// ErrNoActiveSubscription is returned by subscription lookups when a
	// tenant has no active plan. The mapper itself never surfaces it:
	// no plan simply means an empty entitlement set.
	ErrNoActiveSubscription = errors.New("entitlement.no_active_subscription")

	// ErrFeaturePlanMismatch is returned when a feature-permission mapping
	// names a feature that does not belong to the stated plan.
	ErrFeaturePlanMismatch = errors.New("entitlement.feature_plan_mismatch")

	// ErrUnknownPermission is returned when a mapping references a permission
	// id absent from the catalog.
	ErrUnknownPermission = errors.New("entitlement.unknown_permission")

	// ErrMissingName is returned when a feature is created without a name.
	ErrMissingName = errors.New("entitlement.missing_name")
)
