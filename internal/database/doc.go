// Package database provides the PostgreSQL connection pool for the
// optional change-history writer.
package database
