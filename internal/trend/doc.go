// Package trend defines the row shape written to the hot trends table and the
// ports that collectors, enrichers and sinks implement.
package trend
