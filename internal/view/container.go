package view

// Container is the parent that owns every view an adapter ever created. Views
// stay children while pooled; only dropping an adapter removes them.
type Container struct {
	children []*View
	index    map[*View]int
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{index: make(map[*View]int)}
}

// Add appends v. It returns false when v is already a child.
func (c *Container) Add(v *View) bool {
	if v == nil {
		return false
	}
	if _, ok := c.index[v]; ok {
		return false
	}
	c.index[v] = len(c.children)
	c.children = append(c.children, v)
	return true
}

// Remove detaches v, keeping the order of the remaining children.
func (c *Container) Remove(v *View) bool {
	i, ok := c.index[v]
	if !ok {
		return false
	}
	c.children = append(c.children[:i], c.children[i+1:]...)
	delete(c.index, v)
	for j := i; j < len(c.children); j++ {
		c.index[c.children[j]] = j
	}
	return true
}

func (c *Container) Contains(v *View) bool {
	_, ok := c.index[v]
	return ok
}

func (c *Container) Len() int {
	return len(c.children)
}

// Children returns a copy of the children in insertion order.
func (c *Container) Children() []*View {
	out := make([]*View, len(c.children))
	copy(out, c.children)
	return out
}
