// Package role implements roles and their permission grants.
//
// A role bundles permission grants and is assigned to users by the external
// identity layer. Grants are replaced as a whole: AssignPermissions atomically
// supersedes a role's previous grant set, so a concurrent reader sees either
// the old set or the new one, never a mix. Per-role serialization comes from
// the store (a row lock in PostgreSQL, a mutex in memory).
//
// System roles are provisioned at deployment. They can never be deleted by a
// non-super-admin actor, and their name and system flag are equally
// protected; display name and description stay editable.
package role
