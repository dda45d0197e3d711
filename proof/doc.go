// Package proof stores verifiable receipts for executed actions.
//
// A receipt is saved under a scope (the conversation id) and referenced by
// its handle, which is what travels in Response.Proof and message metadata.
// Each receipt carries a SHA-256 digest of its canonical content so a
// client holding the handle can check it was not altered.
//
// The ProofStore interface lives in the core package; this package holds
// the in-memory implementation and the receipt helpers.
package proof
