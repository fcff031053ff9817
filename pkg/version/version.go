// Package version carries the build version stamped via -ldflags.
package version

// Version is the plugin version, overridden at build time with
// -ldflags "-X .../pkg/version.Version=v1.2.3".
var Version = "dev"
