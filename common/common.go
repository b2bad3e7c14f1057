// Package common holds module-wide constants shared across binaries.
package common

// PackageName identifies this service in metrics and logs.
const PackageName = "cryptosanta"

// Version is the service version reported by the health endpoints. Overridden
// at build time via -ldflags.
var Version = "dev"
