// Package version exposes the module's build version for the
// /health/version endpoint.
package version

// Version is overridden at build time via -ldflags, matching the
// teacher's convention of a package-level override point.
var Version = "dev"
