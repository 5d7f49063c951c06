// Package database provides the SQLite connection for the Treeow daemon.
//
// The database holds durable state that must survive restarts - primarily
// the account credential row maintained by the account package. The wrapper
// configures WAL mode, busy timeout and restrictive file permissions, and
// keeps the connection pool sized for SQLite's single-writer model.
package database
