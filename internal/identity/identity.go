package identity

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Identity is an opaque persistent identity token with a precomputed hash.
// Two identities are equal when their tokens are equal; the hash is only a
// fast path and is never trusted on its own.
type Identity struct {
	token string
	hash  int64
}

// New wraps an existing token (for example one read back from a save record).
func New(token string) Identity {
	return Identity{token: token, hash: Hash(token)}
}

// Hash returns the 64-bit hash used for index lookups and anchor references.
// The empty token hashes to 0.
func Hash(token string) int64 {
	if token == "" {
		return 0
	}
	sum := blake2b.Sum256([]byte(token))
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

func (id Identity) String() string { return id.token }
func (id Identity) Hash() int64    { return id.hash }
func (id Identity) IsZero() bool   { return id.token == "" }

// Equal compares hashes first, then tokens.
func (id Identity) Equal(other Identity) bool {
	return id.hash == other.hash && id.token == other.token
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.token), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	*id = New(string(text))
	return nil
}

// SaveIDMap records the identity a holder had on the template and the identity
// minted for it on one spawned instance. Immutable once produced.
type SaveIDMap struct {
	Original Identity `json:"originalIdentity" yaml:"originalIdentity"`
	Remapped Identity `json:"remappedIdentity" yaml:"remappedIdentity"`
}

// Holder is the capability every persistent-state-holder kind implements.
// SetPersistentIdentity fails only when an index-maintaining holder cannot
// take the new key because another holder already owns it.
type Holder interface {
	PersistentIdentity() Identity
	SetPersistentIdentity(id Identity) error
}

// Occupancy reports whether an identity is currently claimed by a live holder.
type Occupancy interface {
	Has(id Identity) bool
}
