// Package preflight provides readiness checks for the devices, directories,
// and binaries barscan depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before it starts offering scans. A failed
//     required check ends the daemon session; there is no retry loop.
//   - The CLI "barscan status" command and GET /api/status show the same
//     results so operators can see what is missing.
//
// Optional checks (torch control, NATS, catalog directory) report problems
// without blocking scanning.
package preflight
