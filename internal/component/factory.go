package component

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
)

// Spec is the data-file form of a component.
type Spec struct {
	Kind   string            `yaml:"kind"`
	ID     string            `yaml:"id"`
	Label  string            `yaml:"label"`
	Player bool              `yaml:"player"`
	Values map[string]string `yaml:"values"`
}

// Build creates a component from its spec. Index-maintaining kinds are wired
// to ix; they register themselves when their object is first activated.
func (ix *Indexes) Build(spec Spec) (scene.Component, error) {
	id := identity.New(spec.ID)
	switch scene.Kind(spec.Kind) {
	case KindRemember:
		return &Remember{SaveID: id}, nil
	case KindLocalVariables:
		c := &LocalVariables{SaveID: id}
		if len(spec.Values) > 0 {
			c.Values = make(map[string]string, len(spec.Values))
			for k, v := range spec.Values {
				c.Values[k] = v
			}
		}
		return c, nil
	case KindCharacter:
		return &Character{ID: id, Player: spec.Player}, nil
	case KindMarker:
		return NewMarker(id, ix.Markers), nil
	case KindInstanceGUID:
		return NewInstanceGUID(id, ix.Anchors), nil
	case KindTemplateGUID:
		return &TemplateGUID{GUID: id}, nil
	case KindTag:
		return &Tag{Label: spec.Label}, nil
	default:
		return nil, fmt.Errorf("unknown component kind %q", spec.Kind)
	}
}
