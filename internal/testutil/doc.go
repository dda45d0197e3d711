// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing conversation messages and histories. These
// helpers are intentionally minimal. They are not intended for production
// usage.
package testutil
