// Package version holds the fskit build version.
package version

// Version is the current fskit version, overridable at build time with
// -ldflags "-X fskit/internal/version.Version=...".
var Version = "0.4.0"
