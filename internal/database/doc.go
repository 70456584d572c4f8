// Package database opens the PostgreSQL pool used by the notification archive.
package database
