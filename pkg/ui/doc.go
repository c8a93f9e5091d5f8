// Package ui renders results and status messages for the terminal.
//
// Tables and JSON are written to stdout; status lines (info, warnings,
// errors and recovery hints) go to stderr so output can be piped. Color and
// table width are only applied when the destination is a terminal.
package ui
