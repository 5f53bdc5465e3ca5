package scenario

import (
	"fmt"
	"sort"
)

// Catalog is a named set of profiles.
type Catalog struct {
	profiles map[string]*Profile
	order    []string
}

// NewCatalog builds a catalog from profiles, keeping their order.
func NewCatalog(profiles ...*Profile) *Catalog {
	c := &Catalog{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		c.Add(p)
	}
	return c
}

// Add registers p, replacing any profile with the same name.
func (c *Catalog) Add(p *Profile) {
	if _, ok := c.profiles[p.Name]; !ok {
		c.order = append(c.order, p.Name)
	}
	c.profiles[p.Name] = p
}

// Merge adds every profile of other.
func (c *Catalog) Merge(other *Catalog) {
	for _, name := range other.order {
		c.Add(other.profiles[name])
	}
}

func (c *Catalog) Lookup(name string) (*Profile, error) {
	p, ok := c.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns profile names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Sorted returns profile names alphabetically.
func (c *Catalog) Sorted() []string {
	out := c.Names()
	sort.Strings(out)
	return out
}

// Select returns the named profiles, or all of them when names is empty.
func (c *Catalog) Select(names ...string) ([]*Profile, error) {
	if len(names) == 0 {
		names = c.order
	}
	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		p, err := c.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate checks every profile in the catalog.
func (c *Catalog) Validate(engine *TemplateEngine) error {
	for _, name := range c.order {
		if err := c.profiles[name].Validate(engine); err != nil {
			return err
		}
	}
	return nil
}
