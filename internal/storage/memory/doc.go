// Package memory provides in-process venue, job and blob stores for
// development and tests.
package memory
