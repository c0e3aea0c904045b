// Package resolver computes the effective permission set for a user request.
//
// It is the single authorized read path for access decisions: role grants
// select permissions, the tenant's subscription entitlement caps them, and
// super-admins bypass both. No other component may consult grants or
// entitlements directly.
//
// The engine is side-effect-free on the read path and safe to retry or
// cancel. An optional cache layer (in-memory or Redis) sits in front of it
// and is kept honest by invalidation hooks fired on every grant and
// entitlement write.
package resolver
