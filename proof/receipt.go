package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
)

// DefaultScope is used when an action runs outside any conversation.
const DefaultScope = "default"

// ErrTampered is returned by Verify when a receipt's digest does not match.
var ErrTampered = errors.New("proof digest mismatch")

// Receipt records what an executed action did.
type Receipt struct {
	ID       string                `json:"id"`
	Scope    string                `json:"scope"`
	Action   core.ActionDescriptor `json:"action"`
	Summary  string                `json:"summary"`
	Payload  map[string]any        `json:"payload,omitempty"`
	IssuedAt time.Time             `json:"issued_at"`
	Digest   string                `json:"digest"`
}

func (r Receipt) digest() (string, error) {
	r.Digest = ""
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Issue stamps r with an id, time and digest, saves it and returns the handle.
func Issue(store core.ProofStore, r Receipt) (string, error) {
	if r.Scope == "" {
		r.Scope = DefaultScope
	}
	if r.ID == "" {
		r.ID = core.NewID()
	}
	if r.IssuedAt.IsZero() {
		r.IssuedAt = time.Now().UTC()
	}
	// Digest the decoded form so Verify recomputes identical bytes.
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}
	var canonical Receipt
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return "", fmt.Errorf("decode receipt: %w", err)
	}
	d, err := canonical.digest()
	if err != nil {
		return "", fmt.Errorf("digest receipt: %w", err)
	}
	canonical.Digest = d

	b, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("encode receipt: %w", err)
	}
	if err := store.Save(canonical.Scope, canonical.ID, b); err != nil {
		return "", fmt.Errorf("save receipt: %w", err)
	}
	return canonical.ID, nil
}

// Verify loads the receipt behind handle and checks its digest.
func Verify(store core.ProofStore, scope, handle string) (*Receipt, error) {
	if scope == "" {
		scope = DefaultScope
	}
	b, err := store.Get(scope, handle)
	if err != nil {
		return nil, err
	}
	var r Receipt
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	want, err := r.digest()
	if err != nil {
		return nil, fmt.Errorf("digest receipt: %w", err)
	}
	if want != r.Digest {
		return &r, ErrTampered
	}
	return &r, nil
}
