// Package report renders run outcomes for people and machines.
//
// Printer is the engine.Reporter used by the command line: it streams
// each failure as it happens, nested under the descriptions of the tests
// enclosing it, and closes the run with the full trace (only when nothing
// failed) followed by the stats. Documents are YAML by default or JSON
// lines when FormatJSON is selected.
//
// WriteTree and WriteStats produce the compact plain-text views used by
// the history commands.
package report
