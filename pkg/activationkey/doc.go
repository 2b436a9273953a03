// Package activationkey implements the activation keys external storefronts
// present to prove entitlement: issuance with atomic rotation, the
// verification protocol, administrative revocation and suspension, and the
// append-only verification audit trail.
//
// Each merchant has exactly one current key. Rotation revokes the old key
// and creates the new one in a single store operation, so no two keys ever
// read as current at the same time and a superseded value never verifies
// again.
//
// Verification couples key validity to live subscription state: a key that
// is itself unexpired still fails with SUBSCRIPTION_INACTIVE when the
// owning subscription no longer grants entitlement.
package activationkey
