// Package stage models the pipeline stages that can be mocked (sdg, train and
// eval) and resolves the chosen real/mocked mode of each into a Plan.
//
// Every stage has one Provider per mode behind the same interface. The plan is
// resolved once at startup from the -mock flags and then consulted by the
// compile step (which flags to pass upstream) and by the driver (whether an
// executor of that stage must be present in the manifest).
package stage
