// Package store provides core.Store implementations.
//
// InMemoryStore keeps records in process-local maps and suits tests, demos
// and the CLI. SQLStore persists to any database/sql driver; the schema is
// created on open and queries are written once with "?" placeholders and
// rebound to "$n" for PostgreSQL.
//
// Every method is scoped by tenant. A record that exists under another tenant
// is reported as core.ErrNotFound.
package store
