package component

import (
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
)

// TemplateGUID marks a template root and every copy made from it with the
// template's catalog guid. It is not a holder: copies share it on purpose.
type TemplateGUID struct {
	scene.Base
	GUID identity.Identity
}

func (t *TemplateGUID) Kind() scene.Kind { return KindTemplateGUID }

func (t *TemplateGUID) Clone() scene.Component {
	return &TemplateGUID{GUID: t.GUID}
}

// Tag is a free-form label with no persistent identity.
type Tag struct {
	scene.Base
	Label string
}

func (t *Tag) Kind() scene.Kind { return KindTag }

func (t *Tag) Clone() scene.Component {
	return &Tag{Label: t.Label}
}
