// Package version holds the tool version, overridable at link time.
package version

// Version is the fabgen release version.
var Version = "0.1.0-dev"
