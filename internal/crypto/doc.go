// Package crypto holds the cipher step applied to persisted inventory
// snapshots and to passphrase-protected backups.
//
// The snapshot cipher is keyed by a secret compiled into the binary. It hides
// the blob from casual inspection of the storage medium and detects
// tampering, but anyone who can read the binary or the process memory can
// decrypt it. It is not access control.
package crypto
