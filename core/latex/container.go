package latex

// Container is an ordered, append-only sequence of child nodes. Composite
// nodes embed it and only add what they emit around their children.
type Container struct {
	children []Node
	sep      string
	sepSet   bool
}

// NewContainer returns a block container holding items. Children are
// rendered one per line.
func NewContainer(items ...any) *Container {
	c := &Container{}
	c.Append(items...)
	return c
}

// Inline returns a container whose children are rendered back to back,
// for composing a single line such as a heading title.
func Inline(items ...any) *Container {
	c := &Container{sep: "", sepSet: true}
	c.Append(items...)
	return c
}

// Append normalizes each item to a Node and adds it. Strings are wrapped in
// Text and escaped; use Raw for pre-formatted LaTeX.
func (c *Container) Append(items ...any) {
	for _, item := range items {
		c.children = append(c.children, toNode(item))
	}
}

// Extend appends nodes in order.
func (c *Container) Extend(nodes []Node) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		c.children = append(c.children, n)
	}
}

// Len returns the number of children.
func (c *Container) Len() int {
	return len(c.children)
}

// Children returns a copy of the child list.
func (c *Container) Children() []Node {
	out := make([]Node, len(c.children))
	copy(out, c.children)
	return out
}

// Render renders the children in insertion order.
func (c *Container) Render() string {
	return renderAll(c.children, c.separator())
}

func (c *Container) separator() string {
	if c.sepSet {
		return c.sep
	}
	return "\n"
}
