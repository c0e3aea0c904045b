package access

import (
	"errors"
	"net/http"

	"github.com/lodgekit/lodgekit/pkg/entitlement"
	"github.com/lodgekit/lodgekit/pkg/menu"
	"github.com/lodgekit/lodgekit/pkg/permission"
	"github.com/lodgekit/lodgekit/pkg/role"
)

// Error kinds surfaced to callers. Stable: clients branch on these.
const (
	KindValidation           = "validation_error"
	KindNotFound             = "not_found"
	KindConflict             = "conflict"
	KindAuthorization        = "authorization_error"
	KindSubscriptionMismatch = "subscription_mismatch"
	KindInternal             = "internal_error"
)

// errValidation tags request decoding and shape failures.
var errValidation = errors.New("access.validation")

// classify maps a domain error onto its HTTP status and error kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnknownUser),
		errors.Is(err, permission.ErrNotFound),
		errors.Is(err, role.ErrNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, entitlement.ErrPlanNotFound),
		errors.Is(err, entitlement.ErrFeatureNotFound):
		return http.StatusNotFound, KindNotFound

	case errors.Is(err, permission.ErrDuplicateKey),
		errors.Is(err, permission.ErrInUse),
		errors.Is(err, role.ErrDuplicateName),
		errors.Is(err, menu.ErrDuplicateKey),
		errors.Is(err, menu.ErrCyclicParent):
		return http.StatusConflict, KindConflict

	case errors.Is(err, permission.ErrSystemProtected),
		errors.Is(err, role.ErrSystemProtected):
		return http.StatusForbidden, KindAuthorization

	case errors.Is(err, entitlement.ErrFeaturePlanMismatch):
		return http.StatusUnprocessableEntity, KindSubscriptionMismatch

	case errors.Is(err, errValidation),
		errors.Is(err, permission.ErrInvalidKey),
		errors.Is(err, permission.ErrInvalidScope),
		errors.Is(err, role.ErrMissingName),
		errors.Is(err, role.ErrUnknownPermission),
		errors.Is(err, menu.ErrMissingKey),
		errors.Is(err, menu.ErrInvalidMatch),
		errors.Is(err, menu.ErrInvalidTransition),
		errors.Is(err, menu.ErrUnknownParent),
		errors.Is(err, menu.ErrUnknownPermission),
		errors.Is(err, entitlement.ErrMissingName),
		errors.Is(err, entitlement.ErrUnknownPermission):
		return http.StatusUnprocessableEntity, KindValidation

	default:
		return http.StatusInternalServerError, KindInternal
	}
}
