// Package entitlement maps a tenant's subscription onto the permission
// catalog.
//
// A plan owns purchasable features; each feature unlocks a set of
// permissions. The mapper resolves a tenant's active plan into the union of
// permission ids its non-deleted features unlock - the tenant's entitlement
// ceiling. A tenant without an active plan gets an empty ceiling, which is an
// answer, not an error.
//
// Entitlement results are cached per tenant; every plan, feature, or mapping
// write invalidates the affected tenants and notifies registered hooks so
// downstream resolution caches can drop their entries too.
package entitlement
