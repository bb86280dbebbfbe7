// Package report defines the per-record failure taxonomy and the aggregated
// warning list returned by the save and load entry points.
package report

import (
	"errors"

	"go.uber.org/multierr"
)

var (
	// ErrResolution: a template, item or parent reference could not be found.
	ErrResolution = errors.New("reference not resolved")
	// ErrCapabilityMismatch: a component kind lacks the persistent-identity capability.
	ErrCapabilityMismatch = errors.New("component has no persistent identity")
	// ErrStaleScene: the record belongs to a scene that is not active. Expected; never reported.
	ErrStaleScene = errors.New("record belongs to an inactive scene")
	// ErrIdentityCollision: a remapped identity is already owned by another holder.
	ErrIdentityCollision = errors.New("identity collision")
	// ErrUnknownVariant: a persisted record carries a variant tag this build does not know.
	ErrUnknownVariant = errors.New("unknown record variant")
)

// Report is an ordered list of isolated, non-fatal failures.
type Report struct {
	Warnings []error
}

// Add appends err. Nil errors and stale-scene skips are dropped.
func (r *Report) Add(err error) {
	if err == nil || errors.Is(err, ErrStaleScene) {
		return
	}
	r.Warnings = append(r.Warnings, err)
}

func (r *Report) Merge(other Report) {
	for _, err := range other.Warnings {
		r.Add(err)
	}
}

func (r Report) Len() int    { return len(r.Warnings) }
func (r Report) Empty() bool { return len(r.Warnings) == 0 }

// Count returns how many warnings match target via errors.Is.
func (r Report) Count(target error) int {
	n := 0
	for _, err := range r.Warnings {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

// Err combines all warnings into one error, or nil when there are none.
func (r Report) Err() error {
	return multierr.Combine(r.Warnings...)
}
