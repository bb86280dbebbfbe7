// Package component holds the concrete component kinds of the scene graph:
// the persistent-state holders whose identities are remapped per spawned
// instance, and the template reference carried by every template root.
package component

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/scene"
)

const (
	KindRemember       scene.Kind = "remember"
	KindLocalVariables scene.Kind = "local_variables"
	KindCharacter      scene.Kind = "character"
	KindMarker         scene.Kind = "marker"
	KindInstanceGUID   scene.Kind = "instance_guid"
	KindTemplateGUID   scene.Kind = "template_guid"
	KindTag            scene.Kind = "tag"
)

// HolderKinds is the default set of kinds whose identities are remapped when
// an instance is spawned.
func HolderKinds() []scene.Kind {
	return []scene.Kind{
		KindRemember,
		KindLocalVariables,
		KindCharacter,
		KindMarker,
		KindInstanceGUID,
	}
}

// ParseHolderKinds converts configured kind names, rejecting kinds that do
// not carry a persistent identity. An empty list yields HolderKinds().
func ParseHolderKinds(names []string) ([]scene.Kind, error) {
	if len(names) == 0 {
		return HolderKinds(), nil
	}
	known := make(map[scene.Kind]bool)
	for _, k := range HolderKinds() {
		known[k] = true
	}
	kinds := make([]scene.Kind, 0, len(names))
	for _, n := range names {
		k := scene.Kind(n)
		if !known[k] {
			return nil, fmt.Errorf("kind %q has no persistent identity", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
