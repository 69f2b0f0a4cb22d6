// Package config defines the format-agnostic generator configuration model
// and the Loader interface that produces it.
//
// The Model lists the executors a generation run cares about together with
// their binding bundles, the file locations of the run and the optional
// upstream compile step. Concrete loaders, such as the HCL one, live in
// separate packages.
package config
