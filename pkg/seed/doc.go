// Package seed provisions the permission catalog, system roles, and menu
// entries from a YAML manifest at deployment time.
//
// Seeding is idempotent: records are matched by their natural key and only
// created when absent, so re-running a deployment never duplicates or
// clobbers operator edits.
package seed
