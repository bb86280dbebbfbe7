package scene

import (
	"context"
	"fmt"
)

// Batch is the pending result of InstantiateAsync. Copies are produced off
// the game loop; Await places them into the scene on the caller's goroutine.
type Batch struct {
	scene     *Scene
	positions []Vec3
	rotations []Quat
	done      chan struct{}
	clones    []*Object
	placed    []*Object
	err       error
}

// InstantiateAsync starts copying template count times. The template must not
// be mutated until the batch has completed (Await returned or Done closed).
func (s *Scene) InstantiateAsync(template *Object, count int, positions []Vec3, rotations []Quat) *Batch {
	b := &Batch{
		scene:     s,
		positions: positions,
		rotations: rotations,
		done:      make(chan struct{}),
	}
	if len(positions) != count || len(rotations) != count {
		b.err = fmt.Errorf("instantiate batch: %d copies, %d positions, %d rotations", count, len(positions), len(rotations))
		close(b.done)
		return b
	}
	go func() {
		defer close(b.done)
		clones := make([]*Object, count)
		for i := range clones {
			clones[i] = template.Clone()
		}
		b.clones = clones
	}()
	return b
}

// Done is closed once the copies exist.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Await suspends until the copies exist, then adds them to the scene as roots
// at their recorded world positions/rotations. Copying is not interruptible:
// Await always waits for it to finish so the template is no longer read, and
// only then consults ctx. If ctx has ended by then, the copies are discarded
// and ctx.Err() is returned. Calling Await again returns the same objects.
func (b *Batch) Await(ctx context.Context) ([]*Object, error) {
	if b.placed != nil {
		return b.placed, nil
	}
	<-b.done
	if err := ctx.Err(); err != nil {
		b.clones = nil
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	b.placed = make([]*Object, len(b.clones))
	for i, c := range b.clones {
		b.scene.Add(c, nil)
		c.SetPosition(b.positions[i])
		c.SetRotation(b.rotations[i])
		b.placed[i] = c
	}
	b.clones = nil
	return b.placed, nil
}
