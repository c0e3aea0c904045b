// Package redis connects the toolkit to Redis, which backs the shared
// resolution cache when the engine runs on more than one node.
//
// It mirrors the pg package: an env-tagged Config, a Connect helper with
// startup retries, and a health check closure.
package redis
