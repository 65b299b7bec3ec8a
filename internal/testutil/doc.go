// Package testutil contains helpers used across tests to reduce boilerplate
// when building callbacks and asserting the order in which they ran. These
// helpers are intentionally minimal and are not intended for production usage.
package testutil
