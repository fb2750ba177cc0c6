// Package scanlog owns the append-only scan log (barcode.txt).
//
// Each accepted scan is one line: "<value> | <yyyy-MM-dd HH:mm:ss>" in local
// time. Appends open, write, and close the file per call under an advisory
// flock so the CLI decode command and the daemon can share one log. Readers
// tail the file by byte offset, return the most recent entries, or follow it
// the way the desktop watcher does.
package scanlog
