package resource

import (
	"sort"
	"sync"
)

// Tagger attaches tags to resources. Setting the same tag twice has the same
// effect as setting it once.
type Tagger interface {
	SetTag(r *Resource, tag Tag)
	HasTag(r *Resource, tag Tag) bool
}

// TagCollection is an in-process Tagger keyed by resource path.
// It is safe for concurrent use.
type TagCollection struct {
	mu   sync.RWMutex
	tags map[string]map[Tag]struct{}
}

// NewTagCollection creates an empty TagCollection.
func NewTagCollection() *TagCollection {
	return &TagCollection{tags: make(map[string]map[Tag]struct{})}
}

// SetTag attaches tag to r.
func (c *TagCollection) SetTag(r *Resource, tag Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.tags[r.Path()]
	if !ok {
		set = make(map[Tag]struct{}, 1)
		c.tags[r.Path()] = set
	}

	set[tag] = struct{}{}
}

// HasTag reports whether r carries tag.
func (c *TagCollection) HasTag(r *Resource, tag Tag) bool {
	return c.HasPathTag(r.Path(), tag)
}

// HasPathTag reports whether the resource at path p carries tag.
func (c *TagCollection) HasPathTag(p string, tag Tag) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.tags[normalize(p)][tag]

	return ok
}

// Tagged returns the sorted paths of all resources carrying tag.
func (c *TagCollection) Tagged(tag Tag) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string

	for p, set := range c.tags {
		if _, ok := set[tag]; ok {
			out = append(out, p)
		}
	}

	sort.Strings(out)

	return out
}
