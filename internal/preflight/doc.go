// Package preflight provides readiness checks for the collaborators and
// local paths a docbatch worker depends on.
//
// `docbatch check` runs RunAll and prints one row per check. `docbatch run`
// relies on the driver's own inference health check and only consults these
// checks when asked to.
package preflight
