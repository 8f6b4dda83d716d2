// Package buildoptions has debugging knobs that are not part of the public
// configuration surface.
package buildoptions

import "os"

// CallStackCeiling is the maximum call frame depth before execution aborts
// with a call stack overflow error. This is a var so tests can lower it.
var CallStackCeiling = 2000

// IsDebugMode makes runtime errors dump the Go stack before unwinding.
var IsDebugMode = os.Getenv("WASMTREE_DEBUG") != ""
