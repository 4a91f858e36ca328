// Package preflight provides readiness checks for the filesystem paths and
// external services the ownership daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when a
//     required directory is unusable.
//   - The CLI "ownership status" command uses the individual checks to
//     display service health next to daemon stats.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
