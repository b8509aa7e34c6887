// Package sqliteexternal registers the CGO SQLite driver.
//
// It is imported by core/sqlite when building with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite
//
// Without the tag the package is empty and core/sqlite falls back to
// modernc.org/sqlite, which needs no C toolchain.
package sqliteexternal
