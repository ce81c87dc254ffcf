// Package version holds the build version.
package version

// Version is overridden at build time via -ldflags "-X cabinmix/pkg/version.Version=...".
var Version = "v0.3.0"
