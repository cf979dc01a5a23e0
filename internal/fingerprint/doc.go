// Package fingerprint computes content fingerprints for dependency-graph
// nodes.
//
// A fingerprint is the sole signal the planner has for "nothing changed",
// so collision resistance matters: digests are SHA-256 over RFC 8785
// canonical JSON with domain separation.
//
// Canonical JSON rules (RFC 8785):
//   - Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//   - No HTML escaping (< > & are NOT escaped)
//   - Strings are NFC normalized
//   - No floats, no null (both return errors)
//
// The engine version is part of every artifact digest so that upgrading the
// tool invalidates all fingerprints uniformly, forcing one full regeneration
// pass after an upgrade. The artifact kind is also part of the digest input:
// two nodes with identical content but different kinds must never collide.
package fingerprint
