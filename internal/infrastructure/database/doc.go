// Package database provides the SQLite connection used by the device
// directory (rooms and sensors).
//
// It manages:
//   - Connection lifecycle with WAL mode and busy timeout pragmas
//   - Embedded schema migrations (see the migrations package)
//   - Health checks for the aggregate startup check
//
// SQLite is deliberate here: the directory is small, local, and read-heavy,
// and a single-file store keeps the deployment self-contained.
package database
