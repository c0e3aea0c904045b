// Package httpserver wraps net/http with environment-driven configuration
// and graceful shutdown, so every service binary starts and stops the same
// way.
package httpserver
