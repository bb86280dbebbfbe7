package catalog

import (
	"fmt"
	"sync"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/identity"
	"github.com/l1jgo/saveable/internal/scene"
	"go.uber.org/zap"
)

// TemplateEntry is one template in templates.yaml.
type TemplateEntry struct {
	GUID       string `yaml:"guid"`
	ObjectSpec `yaml:",inline"`
}

// TemplateCatalog maps template guids to template objects. The hash index is
// built on first lookup and rebuilt after the template list changes.
type TemplateCatalog struct {
	mu        sync.Mutex
	templates []*scene.Object
	byHash    map[int64][]*scene.Object
	log       *zap.Logger
}

func NewTemplateCatalog(log *zap.Logger, templates ...*scene.Object) *TemplateCatalog {
	return &TemplateCatalog{templates: templates, log: log}
}

// LoadTemplateCatalog loads templates.yaml. Each template root gets a
// template_guid component carrying its guid.
func LoadTemplateCatalog(path string, ix *component.Indexes, log *zap.Logger) (*TemplateCatalog, error) {
	var entries []TemplateEntry
	if err := readYAML(path, "template list", &entries); err != nil {
		return nil, err
	}
	c := NewTemplateCatalog(log)
	for _, e := range entries {
		if e.GUID == "" {
			return nil, fmt.Errorf("template %q has no guid", e.Name)
		}
		o, err := Build(e.ObjectSpec, ix)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", e.GUID, err)
		}
		o.AddComponent(&component.TemplateGUID{GUID: identity.New(e.GUID)})
		c.templates = append(c.templates, o)
	}
	return c, nil
}

// Add appends a template and drops the index.
func (c *TemplateCatalog) Add(tpl *scene.Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, tpl)
	c.byHash = nil
}

// TryResolve returns the template with the given guid.
func (c *TemplateCatalog) TryResolve(guid string) (*scene.Object, bool) {
	id := identity.New(guid)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requireIndex()
	for _, tpl := range c.byHash[id.Hash()] {
		if guidOf(tpl).Equal(id) {
			return tpl, true
		}
	}
	return nil, false
}

// Count returns the number of distinct guids.
func (c *TemplateCatalog) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requireIndex()
	n := 0
	for _, list := range c.byHash {
		n += len(list)
	}
	return n
}

// All returns the template list as loaded, duplicates included.
func (c *TemplateCatalog) All() []*scene.Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*scene.Object(nil), c.templates...)
}

// requireIndex builds the hash index. The first template with a guid wins;
// later duplicates and templates without a guid are logged and left out.
func (c *TemplateCatalog) requireIndex() {
	if c.byHash != nil {
		return
	}
	c.byHash = make(map[int64][]*scene.Object, len(c.templates))
	for _, tpl := range c.templates {
		id := guidOf(tpl)
		if id.IsZero() {
			c.log.Warn("template without guid ignored", zap.String("template", tpl.Name()))
			continue
		}
		dup := false
		for _, other := range c.byHash[id.Hash()] {
			if guidOf(other).Equal(id) {
				dup = true
				break
			}
		}
		if dup {
			c.log.Warn("duplicate template guid ignored",
				zap.String("guid", id.String()),
				zap.String("template", tpl.Name()))
			continue
		}
		c.byHash[id.Hash()] = append(c.byHash[id.Hash()], tpl)
	}
}

func guidOf(tpl *scene.Object) identity.Identity {
	if tg, ok := scene.GetComponent[*component.TemplateGUID](tpl); ok {
		return tg.GUID
	}
	return identity.Identity{}
}
