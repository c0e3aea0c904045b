// Package permission implements the permission catalog: the authoritative set
// of resource.action capabilities the rest of the access-control core builds
// on.
//
// The catalog is read-mostly. Reads go through List/Get and are safe to cache;
// writes (Create, Update, Delete) are the only mutation path and enforce the
// catalog's consistency rules: unique keys, valid resource.action format,
// system permissions mutable only by super-admin actors, and no deletion of a
// permission still referenced by a role grant or a subscription feature
// mapping.
//
// Storage is pluggable through the Store interface, with an in-memory
// implementation for tests and composition, and a PostgreSQL implementation
// on pgx for production.
package permission
