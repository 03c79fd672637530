// Package api defines the wire-level types of the semstore service:
// documents, query and listing results, structured errors, and document
// identifiers. It has no dependencies on storage or transport and is
// imported by every other package.
package api
