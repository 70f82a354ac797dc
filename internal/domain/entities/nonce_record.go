package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// NonceRecord tracks nonce issuance for one wallet address. CurrentNonce is
// the next value to hand out; PendingNonces holds values that were allocated
// but whose submission outcome is not yet known. The lock holder/expiry pair
// is a cross-process lease on the record.
type NonceRecord struct {
	Address       string      `json:"address"`
	CurrentNonce  uint64      `json:"currentNonce"`
	PendingNonces []uint64    `json:"pendingNonces"`
	LockHolder    null.String `json:"lockHolder,omitempty"`
	LockExpiry    *time.Time  `json:"lockExpiry,omitempty"`
	LastSyncedAt  *time.Time  `json:"lastSyncedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// AddPending records a freshly allocated nonce.
func (r *NonceRecord) AddPending(nonce uint64) {
	for _, n := range r.PendingNonces {
		if n == nonce {
			return
		}
	}
	r.PendingNonces = append(r.PendingNonces, nonce)
}

// RemovePending drops a resolved nonce from the pending set and reports
// whether it was present.
func (r *NonceRecord) RemovePending(nonce uint64) bool {
	for i, n := range r.PendingNonces {
		if n == nonce {
			r.PendingNonces = append(r.PendingNonces[:i], r.PendingNonces[i+1:]...)
			return true
		}
	}
	return false
}

// HasPendingAtOrAbove reports whether any unresolved nonce >= n exists.
// Rewinding CurrentNonce below such a nonce would reissue a value that a
// still-in-flight transaction already claims.
func (r *NonceRecord) HasPendingAtOrAbove(n uint64) bool {
	for _, p := range r.PendingNonces {
		if p >= n {
			return true
		}
	}
	return false
}

// NonceInfo is a diagnostic snapshot of local and chain nonce state for an
// address, exposed for operator tooling.
type NonceInfo struct {
	Address       string      `json:"address"`
	ChainNonce    uint64      `json:"chainNonce"`
	LocalNonce    uint64      `json:"localNonce"`
	PendingNonces []uint64    `json:"pendingNonces"`
	LockHolder    null.String `json:"lockHolder,omitempty"`
	LockExpiry    *time.Time  `json:"lockExpiry,omitempty"`
	LastSyncedAt  *time.Time  `json:"lastSyncedAt,omitempty"`
	InSync        bool        `json:"inSync"`
}
