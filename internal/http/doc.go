// Package http provides the administrative HTTP surface of the bridge.
//
// The router exposes the following endpoints, all behind basic-auth admin
// credentials except /healthz:
//   - GET /healthz: liveness probe, returns 204 No Content.
//   - GET /pool/stats: per-node borrowed/idle session counts.
//   - DELETE /pool/sessions: drains idle sessions on every node; borrowed
//     sessions are destroyed as they come back.
//   - DELETE /pool/nodes/{id}/sessions: same, scoped to one node.
//   - GET /accounts?username=&kind= | ?q= | ?owner=: directory lookups by
//     username, substring search, or resources delegated to an owner.
//   - GET /accounts/{unique_id}/guid: resolves the account's remote GUID,
//     caching it on the directory record.
//
// Request/response DTOs live alongside their respective handlers so tests
// and documentation share the same ground truth.
package http
