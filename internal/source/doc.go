// Package source groups the per-platform trend.Source implementations.
// Each subpackage fetches a bounded list from one API and stamps every item
// with that platform's catalog identifiers.
package source
