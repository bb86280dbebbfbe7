package report

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestReport_AddDropsNilAndStaleScene(t *testing.T) {
	var r Report
	r.Add(nil)
	r.Add(fmt.Errorf("%w: scene-b", ErrStaleScene))
	require.True(t, r.Empty())
	require.NoError(t, r.Err())
}

func TestReport_CountAndErr(t *testing.T) {
	var r Report
	r.Add(fmt.Errorf("%w: template %q", ErrResolution, "crate"))
	r.Add(fmt.Errorf("%w: tag on Crate", ErrCapabilityMismatch))
	r.Add(fmt.Errorf("%w: item %q", ErrResolution, "potion"))

	require.Equal(t, 3, r.Len())
	require.Equal(t, 2, r.Count(ErrResolution))
	require.Equal(t, 1, r.Count(ErrCapabilityMismatch))
	require.Zero(t, r.Count(ErrIdentityCollision))

	err := r.Err()
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 3)
	require.True(t, errors.Is(err, ErrCapabilityMismatch))
}

func TestReport_Merge(t *testing.T) {
	var a, b Report
	a.Add(ErrResolution)
	b.Add(ErrIdentityCollision)
	b.Add(ErrStaleScene)
	a.Merge(b)
	require.Equal(t, 2, a.Len())
}
