// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing execution contexts, seeding stores and
// stubbing outbound transports. They are not intended for production usage.
package testutil
