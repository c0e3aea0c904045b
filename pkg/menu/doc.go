// Package menu maintains the navigation catalog and computes the menu tree
// a user is allowed to see.
//
// Every entry carries a required-permission rule (match type ANY, ALL, or
// NONE) evaluated against the user's effective permission set. Visibility is
// judged per entry; the tree only decides placement. Entries are either
// platform-wide or scoped to one tenant, and a tenant's menu merges both.
// Entries move through a draft, active, inactive lifecycle and only active
// entries participate in visibility at all.
package menu
