// Package database stores the history of runs in SQLite.
//
// Every run is saved with its window, digest, publish state and the full
// row set, so later runs can be compared against it and an earlier data
// set can be inspected after the remote dataset was replaced.
//
// The driver is modernc.org/sqlite, which needs no cgo; the database is a
// single file in the data directory.
package database
