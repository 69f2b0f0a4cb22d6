// Package testutil provides shared helpers for tests: a concurrency-safe log
// buffer and a fixture writer for temporary project directories.
package testutil
