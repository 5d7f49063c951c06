// Package device provides the in-memory device registry for the Treeow daemon.
//
// A Device couples the vendor-reported identity (ID, serial, category, schema
// version, addressing fields) with the capability set parsed from its digital
// model and the last-known value snapshot. The Registry is the single owner
// of the device set after discovery; the sync engine updates snapshots
// through it and every consumer reads from it.
//
// # Thread Safety
//
// Both Device and Registry are safe for concurrent use. Identity fields are
// immutable after construction; snapshot and capability access is guarded by
// per-device locks.
package device
