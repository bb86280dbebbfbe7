// Package remap mints per-instance identities for the state holders inside a
// spawned object and re-applies saved identity maps to fresh copies.
package remap

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
	"go.uber.org/zap"
)

// Engine is the only writer of holder identities. It is not safe for
// concurrent use; the indexes it writes through are.
type Engine struct {
	gen      identity.Generator
	occupied []identity.Occupancy
	log      *zap.Logger
}

// NewEngine builds an engine minting ids from gen. A minted or applied
// identity that any of occupied already holds is treated as a collision.
func NewEngine(gen identity.Generator, log *zap.Logger, occupied ...identity.Occupancy) *Engine {
	return &Engine{gen: gen, occupied: occupied, log: log}
}

type write struct {
	holder   identity.Holder
	previous identity.Identity
}

// CaptureAndRemap gives every holder of a kind in kinds under root a fresh
// identity and returns the (original, new) pairs in traversal order.
// Components of a selected kind that lack the capability are skipped and
// reported. On a collision every identity already written is restored and
// the error wraps report.ErrIdentityCollision; nothing is returned for the
// instance.
//
// Capture exactly once per spawn: a second call on the same subtree maps the
// already-remapped identities and yields a different map.
func (e *Engine) CaptureAndRemap(root *scene.Object, kinds KindSet) ([]identity.SaveIDMap, report.Report, error) {
	var rep report.Report
	holders := e.collect(root, func(c scene.Component) bool { return kinds.Has(c.Kind()) }, &rep)

	maps := make([]identity.SaveIDMap, 0, len(holders))
	writes := make([]write, 0, len(holders))
	minted := make(map[string]struct{}, len(holders))
	for _, h := range holders {
		original := h.PersistentIdentity()
		next := e.gen.Generate()
		_, dup := minted[next.String()]
		if dup || e.isOccupied(next) {
			e.rollback(writes)
			return nil, rep, e.collision(root, next, nil)
		}
		if err := h.SetPersistentIdentity(next); err != nil {
			e.rollback(writes)
			return nil, rep, e.collision(root, next, err)
		}
		minted[next.String()] = struct{}{}
		writes = append(writes, write{holder: h, previous: original})
		maps = append(maps, identity.SaveIDMap{Original: original, Remapped: next})
	}
	return maps, rep, nil
}

// ApplyRemap walks root and, for every holder whose current identity equals
// some Original in maps, overwrites it with the matching Remapped identity.
// Each map entry is used at most once, in order, so holders that shared one
// template identity get back their own remapped identities: a fresh copy
// walks its holders in the same order CaptureAndRemap produced the maps.
// Applying the same map twice is a no-op the second time. A collision rolls
// back this call's writes.
func (e *Engine) ApplyRemap(root *scene.Object, maps []identity.SaveIDMap) (int, report.Report, error) {
	var rep report.Report
	if len(maps) == 0 {
		return 0, rep, nil
	}
	byHash := make(map[int64][]int, len(maps))
	for i, m := range maps {
		byHash[m.Original.Hash()] = append(byHash[m.Original.Hash()], i)
	}
	used := make([]bool, len(maps))

	holders := e.collect(root, isHolder, &rep)
	var writes []write
	for _, h := range holders {
		cur := h.PersistentIdentity()
		i, ok := match(maps, byHash[cur.Hash()], used, cur)
		if !ok {
			continue
		}
		used[i] = true
		m := maps[i]
		if m.Remapped.Equal(cur) {
			continue
		}
		if e.isOccupied(m.Remapped) {
			e.rollback(writes)
			return 0, rep, e.collision(root, m.Remapped, nil)
		}
		if err := h.SetPersistentIdentity(m.Remapped); err != nil {
			e.rollback(writes)
			return 0, rep, e.collision(root, m.Remapped, err)
		}
		writes = append(writes, write{holder: h, previous: cur})
	}
	return len(writes), rep, nil
}

// match returns the first unused entry among candidates whose Original is cur.
func match(maps []identity.SaveIDMap, candidates []int, used []bool, cur identity.Identity) (int, bool) {
	for _, i := range candidates {
		if !used[i] && maps[i].Original.Equal(cur) {
			return i, true
		}
	}
	return 0, false
}

func isHolder(c scene.Component) bool {
	_, ok := c.(identity.Holder)
	return ok
}

// collect returns the holders under root, depth-first, each exactly once.
func (e *Engine) collect(root *scene.Object, selected func(scene.Component) bool, rep *report.Report) []identity.Holder {
	var holders []identity.Holder
	root.Walk(func(o *scene.Object) {
		for _, c := range o.Components() {
			if !selected(c) {
				continue
			}
			h, err := AsHolder(c)
			if err != nil {
				e.log.Warn("skipping component without persistent identity",
					zap.String("kind", string(c.Kind())),
					zap.String("object", o.Path()))
				rep.Add(err)
				continue
			}
			holders = append(holders, h)
		}
	})
	return holders
}

func (e *Engine) isOccupied(id identity.Identity) bool {
	for _, o := range e.occupied {
		if o.Has(id) {
			return true
		}
	}
	return false
}

func (e *Engine) rollback(writes []write) {
	for i := len(writes) - 1; i >= 0; i-- {
		if err := writes[i].holder.SetPersistentIdentity(writes[i].previous); err != nil {
			e.log.Error("rollback of remapped identity failed",
				zap.String("identity", writes[i].previous.String()), zap.Error(err))
		}
	}
}

func (e *Engine) collision(root *scene.Object, id identity.Identity, cause error) error {
	e.log.Error("identity collision, remap aborted for instance",
		zap.String("object", root.Path()),
		zap.String("identity", id.String()),
		zap.Error(cause))
	if cause != nil {
		return fmt.Errorf("%w: %s on %q: %v", report.ErrIdentityCollision, id, root.Path(), cause)
	}
	return fmt.Errorf("%w: %s on %q", report.ErrIdentityCollision, id, root.Path())
}
