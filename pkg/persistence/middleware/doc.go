// Package middleware decorates a ports.SnapshotStore with content protection.
//
//   - NewEncryptionMiddleware stores each snapshot as an AES-256-GCM envelope,
//     with fallback keys for rotation.
//   - NewRedactionMiddleware masks content values whose keys match a pattern.
//
// Combine them with Wrap. Redaction should come first so that masked values are
// what gets encrypted.
package middleware
