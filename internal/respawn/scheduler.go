// Package respawn rebuilds persisted instances on load, shallowest first, so
// every anchor a deeper instance hangs from is already in place.
package respawn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/instance"
	"github.com/l1jgo/saveable/internal/remap"
	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/scene"
	"go.uber.org/zap"
)

// TemplateResolver looks up a template by catalog guid.
type TemplateResolver interface {
	TryResolve(guid string) (*scene.Object, bool)
}

// ItemResolver looks up the template of an item by item id.
type ItemResolver interface {
	TryResolve(itemID string) (*scene.Object, bool)
}

// Scheduler replays instance metadata into one scene.
type Scheduler struct {
	scene     *scene.Scene
	templates TemplateResolver
	items     ItemResolver
	anchors   *identity.Index[*component.InstanceGUID]
	remap     *remap.Engine
	log       *zap.Logger
	timeout   time.Duration // per batch, checked once its copies exist; 0 = no limit
}

func NewScheduler(sc *scene.Scene, templates TemplateResolver, items ItemResolver, anchors *identity.Index[*component.InstanceGUID], engine *remap.Engine, log *zap.Logger, batchTimeout time.Duration) *Scheduler {
	return &Scheduler{
		scene:     sc,
		templates: templates,
		items:     items,
		anchors:   anchors,
		remap:     engine,
		log:       log,
		timeout:   batchTimeout,
	}
}

// group is every record of one depth sharing one template.
type group struct {
	template *scene.Object
	ref      string
	records  []*instance.Metadata
}

// Result summarises a respawn pass.
type Result struct {
	Spawned int
	Skipped int // other scenes
	Report  report.Report
}

// Respawn rebuilds records whose origin is the current scene and sets their
// Instance on success. Per-record failures land in the report. The pass
// stops early only when ctx ends; no template is left deactivated and no
// half-built instance is left in the scene.
func (s *Scheduler) Respawn(ctx context.Context, records []*instance.Metadata) (Result, error) {
	var res Result
	depths, byDepth := s.plan(records, &res)

	for _, d := range depths {
		for _, g := range byDepth[d] {
			if err := s.spawnGroup(ctx, d, g, &res); err != nil {
				return res, err
			}
		}
	}
	n := s.scene.SyncTransforms()
	s.log.Debug("respawn finished",
		zap.Int("spawned", res.Spawned),
		zap.Int("warnings", res.Report.Len()),
		zap.Int("transforms_synced", n))
	return res, nil
}

// plan filters by scene and groups by depth, then by template, keeping the
// persisted order inside each group.
func (s *Scheduler) plan(records []*instance.Metadata, res *Result) ([]int, map[int][]*group) {
	byDepth := make(map[int][]*group)
	index := make(map[int]map[*scene.Object]*group)
	for _, m := range records {
		if m.SceneID != s.scene.GUID() {
			res.Skipped++
			continue
		}
		tpl, ok := s.resolve(m)
		if !ok {
			err := fmt.Errorf("%w: %s %q", report.ErrResolution, m.Variant, m.TemplateRef)
			s.log.Warn("respawn skipped, template not found",
				zap.String("template", m.TemplateRef),
				zap.String("variant", string(m.Variant)))
			res.Report.Add(err)
			continue
		}
		if index[m.Depth] == nil {
			index[m.Depth] = make(map[*scene.Object]*group)
		}
		g, ok := index[m.Depth][tpl]
		if !ok {
			g = &group{template: tpl, ref: m.TemplateRef}
			index[m.Depth][tpl] = g
			byDepth[m.Depth] = append(byDepth[m.Depth], g)
		}
		g.records = append(g.records, m)
	}
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	return depths, byDepth
}

func (s *Scheduler) resolve(m *instance.Metadata) (*scene.Object, bool) {
	switch m.Variant {
	case instance.VariantItemInstance:
		if s.items == nil {
			return nil, false
		}
		return s.items.TryResolve(m.TemplateRef)
	default:
		return s.templates.TryResolve(m.TemplateRef)
	}
}

// spawnGroup creates a group's instances in one batch with the template
// deactivated, then finishes each instance. Returns an error only when ctx
// has ended.
func (s *Scheduler) spawnGroup(ctx context.Context, depth int, g *group, res *Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("respawn depth %d: %w", depth, err)
	}
	if g.template.ActiveSelf() {
		g.template.SetActive(false)
		defer g.template.SetActive(true)
	}

	positions := make([]scene.Vec3, len(g.records))
	rotations := make([]scene.Quat, len(g.records))
	for i, m := range g.records {
		positions[i] = m.Position
		rotations[i] = m.Rotation
	}

	bctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	objs, err := s.scene.InstantiateAsync(g.template, len(g.records), positions, rotations).Await(bctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("respawn depth %d: %w", depth, ctx.Err())
		}
		s.log.Warn("respawn batch failed",
			zap.String("template", g.ref),
			zap.Int("depth", depth),
			zap.Int("count", len(g.records)),
			zap.Error(err))
		for range g.records {
			res.Report.Add(fmt.Errorf("%w: batch for %q: %v", report.ErrResolution, g.ref, err))
		}
		return nil
	}

	for i, obj := range objs {
		if s.finish(obj, g.records[i], &res.Report) {
			res.Spawned++
		}
	}
	return nil
}

// finish names, reparents, restores identities and activates one instance.
// A failed parent lookup leaves the instance at the scene root; an identity
// collision destroys it.
func (s *Scheduler) finish(obj *scene.Object, m *instance.Metadata, rep *report.Report) bool {
	if m.DisplayName != "" {
		obj.SetName(m.DisplayName)
	}

	parent, err := s.resolveParent(m.Parent)
	switch {
	case err != nil:
		s.log.Warn("respawned instance left unparented",
			zap.String("template", m.TemplateRef),
			zap.String("object", obj.Name()),
			zap.String("path", m.Parent.Path),
			zap.Error(err))
		rep.Add(err)
	case parent != nil:
		obj.SetParent(parent)
	}

	_, remapRep, err := s.remap.ApplyRemap(obj, m.SaveIDMaps)
	rep.Merge(remapRep)
	if err != nil {
		s.scene.Destroy(obj)
		m.Instance = nil
		rep.Add(err)
		return false
	}

	obj.SetActive(true)
	m.Instance = obj
	return true
}

var errNoAnchor = errors.New("anchor not in scene")

func (s *Scheduler) resolveParent(d instance.ParentDescription) (*scene.Object, error) {
	if !d.Anchored {
		if d.Path == "" {
			return nil, nil
		}
		if p := s.scene.Find(d.Path); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("%w: parent path %q", report.ErrResolution, d.Path)
	}

	anchor := s.findAnchor(d.AnchorHash)
	if anchor == nil {
		return nil, fmt.Errorf("%w: %w %d", report.ErrResolution, errNoAnchor, d.AnchorHash)
	}
	if p := anchor.Find(d.Path); p != nil {
		return p, nil
	}
	s.log.Warn("path under anchor not found, using the anchor",
		zap.String("anchor", anchor.Path()),
		zap.String("path", d.Path))
	return anchor, nil
}

// findAnchor prefers the anchor index; anchors on inactive objects are not
// registered there, so it falls back to a scene walk.
func (s *Scheduler) findAnchor(hash int64) *scene.Object {
	if s.anchors != nil {
		if g, ok := s.anchors.LookupHash(hash); ok {
			if o := g.Owner(); o.Alive() && o.Scene() == s.scene {
				return o
			}
		}
	}
	var found *scene.Object
	for _, r := range s.scene.Roots() {
		r.Walk(func(o *scene.Object) {
			if found != nil {
				return
			}
			if g, ok := scene.GetComponent[*component.InstanceGUID](o); ok && g.GUID.Hash() == hash {
				found = o
			}
		})
	}
	return found
}
