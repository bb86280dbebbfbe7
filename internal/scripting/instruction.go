package scripting

import (
	"fmt"
	"math"

	"github.com/l1jgo/saveable/internal/report"
	"github.com/l1jgo/saveable/internal/respawn"
	"github.com/l1jgo/saveable/internal/scene"
	"github.com/l1jgo/saveable/internal/tracker"
	"go.uber.org/zap"
)

// LoadState reports whether a load pass is running.
type LoadState interface {
	IsLoading() bool
}

// Instruction executes script commands against the tracker. While a load is
// running nothing is spawned: the load is about to replace the tracked set.
type Instruction struct {
	tracker   *tracker.Tracker
	templates respawn.TemplateResolver
	scene     *scene.Scene
	loading   LoadState
	log       *zap.Logger
}

func NewInstruction(tr *tracker.Tracker, templates respawn.TemplateResolver, sc *scene.Scene, loading LoadState, log *zap.Logger) *Instruction {
	return &Instruction{tracker: tr, templates: templates, scene: sc, loading: loading, log: log}
}

// Run executes cmds in order and returns how many succeeded. Failed commands
// are logged and reported; they do not stop the rest.
func (in *Instruction) Run(cmds []Command) (int, report.Report) {
	var rep report.Report
	if len(cmds) == 0 {
		return 0, rep
	}
	if in.loading != nil && in.loading.IsLoading() {
		in.log.Debug("script commands dropped during load", zap.Int("count", len(cmds)))
		return 0, rep
	}
	done := 0
	for _, c := range cmds {
		warn, err := in.exec(c)
		rep.Merge(warn)
		if err != nil {
			in.log.Warn("script command failed", zap.String("type", c.Type), zap.Error(err))
			rep.Add(err)
			continue
		}
		done++
	}
	return done, rep
}

func (in *Instruction) exec(c Command) (report.Report, error) {
	switch c.Type {
	case "instantiate":
		tpl, ok := in.templates.TryResolve(c.Template)
		if !ok {
			return report.Report{}, fmt.Errorf("%w: template %q", report.ErrResolution, c.Template)
		}
		parent, err := in.parent(c.Parent)
		if err != nil {
			return report.Report{}, err
		}
		_, rep, err := in.tracker.Instantiate(tpl, parent, c.position(), c.rotation())
		return rep, err
	case "instantiate_item":
		parent, err := in.parent(c.Parent)
		if err != nil {
			return report.Report{}, err
		}
		_, rep, err := in.tracker.InstantiateItem(c.Item, parent, c.position(), c.rotation())
		return rep, err
	case "destroy":
		o := in.scene.Find(c.Target)
		if o == nil {
			return report.Report{}, fmt.Errorf("%w: destroy target %q", report.ErrResolution, c.Target)
		}
		in.scene.Destroy(o)
		return report.Report{}, nil
	default:
		return report.Report{}, fmt.Errorf("unknown script command %q", c.Type)
	}
}

func (in *Instruction) parent(path string) (*scene.Object, error) {
	if path == "" {
		return nil, nil
	}
	if p := in.scene.Find(path); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: parent %q", report.ErrResolution, path)
}

func (c Command) position() scene.Vec3 {
	return scene.V3(float32(c.X), float32(c.Y), float32(c.Z))
}

func (c Command) rotation() scene.Quat {
	return scene.AxisAngle(scene.V3(0, 1, 0), c.Yaw*math.Pi/180)
}
