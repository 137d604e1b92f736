// Package arbor holds release metadata for the arbor module.
package arbor

// Version is the semantic version of this build.
const Version = "0.3.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/arbor"
