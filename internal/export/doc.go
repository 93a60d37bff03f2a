// Package export renders a finished batch into its output formats.
//
// All writers consume the final job snapshot in insertion order and are
// deterministic: the same snapshot produces byte-identical output, so
// repeated exports and tests can compare exact bytes.
package export
