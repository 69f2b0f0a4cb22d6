// Package manifest loads compiled pipeline manifests and locates executor
// container specifications inside them.
//
// A manifest is a stream of YAML documents produced by an external pipeline
// compiler. Nothing about its shape is guaranteed, so every descent step
// through the tree reports whether the value was found, absent or malformed.
// The locator relies on that distinction to separate recoverable outcomes
// (an optional executor is missing) from fatal ones (the structure is broken).
package manifest
