package catalog

import (
	"fmt"

	"github.com/l1jgo/saveable/internal/component"
	"github.com/l1jgo/saveable/internal/scene"
)

// Item is an inventory item whose world form is spawned from Template.
type Item struct {
	ID       string
	Name     string
	Template *scene.Object
}

type itemEntry struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Template ObjectSpec `yaml:"template"`
}

// ItemCatalog maps item ids to items.
type ItemCatalog struct {
	items map[string]*Item
}

// LoadItemCatalog loads items.yaml.
func LoadItemCatalog(path string, ix *component.Indexes) (*ItemCatalog, error) {
	var entries []itemEntry
	if err := readYAML(path, "item list", &entries); err != nil {
		return nil, err
	}
	c := &ItemCatalog{items: make(map[string]*Item, len(entries))}
	for _, e := range entries {
		if e.Template.Name == "" {
			e.Template.Name = e.Name
		}
		tpl, err := Build(e.Template, ix)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", e.ID, err)
		}
		c.items[e.ID] = &Item{ID: e.ID, Name: e.Name, Template: tpl}
	}
	return c, nil
}

// TryResolve returns the template of the item with the given id.
func (c *ItemCatalog) TryResolve(itemID string) (*scene.Object, bool) {
	it := c.items[itemID]
	if it == nil || it.Template == nil {
		return nil, false
	}
	return it.Template, true
}

func (c *ItemCatalog) Count() int {
	return len(c.items)
}
