// Package access exposes the access-control core over HTTP: effective
// permission resolution, role grant management, catalog mutation, and
// per-user menus.
//
// The module owns no authentication. The host application authenticates the
// request and places the acting user on the context with resolver.WithUser;
// handlers read it back for super-admin checks. Every endpoint is a POST
// taking and returning JSON, and typed domain errors map onto a stable
// {kind, message} envelope.
package access
