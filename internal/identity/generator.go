package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator mints fresh identities. Generation cannot fail.
type Generator interface {
	Generate() Identity
}

// UUIDGenerator mints random (version 4) UUID tokens.
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() Identity {
	return New(uuid.NewString())
}

// Generate mints a fresh identity with the default generator.
func Generate() Identity {
	return UUIDGenerator{}.Generate()
}

// Sequence mints predictable tokens "<prefix><n>" starting at 1.
// Used by tests and tools that need reproducible output.
type Sequence struct {
	prefix string
	next   atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Generate() Identity {
	return New(fmt.Sprintf("%s%d", s.prefix, s.next.Add(1)))
}
