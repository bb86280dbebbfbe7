package remap

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
)

// KindSet selects which component kinds a capture pass remaps.
type KindSet map[scene.Kind]struct{}

func NewKindSet(kinds ...scene.Kind) KindSet {
	ks := make(KindSet, len(kinds))
	for _, k := range kinds {
		ks[k] = struct{}{}
	}
	return ks
}

func (ks KindSet) Has(k scene.Kind) bool {
	_, ok := ks[k]
	return ok
}

// AsHolder returns c's persistent-identity capability, or a capability
// mismatch error naming the kind and the object it sits on.
func AsHolder(c scene.Component) (identity.Holder, error) {
	if h, ok := c.(identity.Holder); ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: kind %q on %q", report.ErrCapabilityMismatch, c.Kind(), ownerPath(c))
}

func ownerPath(c scene.Component) string {
	if o := c.Owner(); o != nil {
		return o.Path()
	}
	return "<detached>"
}
