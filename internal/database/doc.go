// Package database opens the PostgreSQL pool used for trigger history.
//
// The pool is optional: the daemon runs without it when database.enabled
// is false, and triggers are then only logged and counted.
package database
