// Package treeow implements the client side of the Treeow cloud API.
//
// It provides:
//
//   - Client: an authorized HTTP session wrapper over the vendor endpoints
//     (login, token refresh/verify, home groups, device list, capability
//     schemas, value snapshots, capability writes, heartbeats)
//   - TokenManager: the access/refresh token lifecycle with write-through
//     persistence and an hourly maintenance loop
//   - ModelCache: the TTL + version bounded cache for capability schemas
//     ("digital models")
//
// Every response passes the envelope check before its payload is trusted.
// The vendor wraps results in one of three envelope shapes; anything else
// fails closed as ErrProtocol. Vendor rejections carry the server's own
// message as a *ServerError.
package treeow
