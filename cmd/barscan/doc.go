// Command barscan is the operator CLI for the barscan daemon.
//
// It starts and stops the daemon, triggers scans and the flash over the HTTP
// API, shows status and scan history, and follows the scan log, daemon log
// and event stream. It also manages the product catalog and opens the
// terminal scanning screen.
// Commands that only read local files keep working when the daemon is down.
package main
