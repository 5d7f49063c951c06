// Package account holds the Treeow cloud account credentials and their
// persistence.
//
// Credentials carry the account identity plus the access/refresh token pair
// and its expiry. They are mutated only by the token manager and persisted
// write-through via the Store interface; the SQLite implementation keeps a
// single row so a restart resumes with the last issued token pair instead of
// a fresh login.
package account
