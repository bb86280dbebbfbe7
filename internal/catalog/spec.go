// Package catalog loads templates, items and the starting scene layout from
// YAML data files.
package catalog

import (
	"fmt"
	"os"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/scene"
	"gopkg.in/yaml.v3"
)

// ObjectSpec is the data-file form of an object hierarchy.
type ObjectSpec struct {
	Name       string           `yaml:"name"`
	Inactive   bool             `yaml:"inactive"`
	Position   [3]float32       `yaml:"position,flow"`
	Rotation   *[4]float32      `yaml:"rotation,flow"` // x, y, z, w; identity when absent
	Components []component.Spec `yaml:"components"`
	Children   []ObjectSpec     `yaml:"children"`
}

// Build creates a detached hierarchy from spec with local transforms.
func Build(spec ObjectSpec, ix *component.Indexes) (*scene.Object, error) {
	o := scene.NewObject(spec.Name)
	o.SetLocalPosition(scene.V3(spec.Position[0], spec.Position[1], spec.Position[2]))
	if r := spec.Rotation; r != nil {
		o.SetLocalRotation(scene.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]})
	}
	for _, cs := range spec.Components {
		c, err := ix.Build(cs)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", spec.Name, err)
		}
		o.AddComponent(c)
	}
	for _, cs := range spec.Children {
		child, err := Build(cs, ix)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", spec.Name, err)
		}
		o.AddChild(child)
	}
	if spec.Inactive {
		o.SetActive(false)
	}
	return o, nil
}

func readYAML(path, what string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", what, err)
	}
	return nil
}

// LoadSceneLayout adds the objects listed in layout.yaml to sc as roots.
// Returns the number of root objects added.
func LoadSceneLayout(path string, sc *scene.Scene, ix *component.Indexes) (int, error) {
	var specs []ObjectSpec
	if err := readYAML(path, "scene layout", &specs); err != nil {
		return 0, err
	}
	for _, spec := range specs {
		o, err := Build(spec, ix)
		if err != nil {
			return 0, fmt.Errorf("scene layout: %w", err)
		}
		sc.Add(o, nil)
	}
	return len(specs), nil
}
