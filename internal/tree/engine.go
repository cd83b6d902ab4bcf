package tree

import (
	"fmt"
	"slices"
)

// Option configures a new Document.
type Option func(*Document)

// WithIDGenerator makes the document draw node ids from g.
func WithIDGenerator(g *IDGenerator) Option {
	return func(d *Document) { d.ids = g }
}

// New creates a document with a fresh root node.
func New(name, rootContent string, opts ...Option) (*Document, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return nil, fmt.Errorf("%w: %q has no usable characters", ErrEmptyName, name)
	}
	content := normalizeContent(rootContent)
	if content == "" {
		return nil, fmt.Errorf("root: %w", ErrEmptyContent)
	}

	d := &Document{Name: clean}
	for _, opt := range opts {
		opt(d)
	}

	id, err := d.generator().Generate(nil)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	d.Created = now
	d.Modified = now
	d.Root = &Node{ID: id, Content: content, Children: []*Node{}}
	return d, nil
}

// SetIDGenerator replaces the generator used by Add. Documents decoded from
// storage start with the default generator.
func (d *Document) SetIDGenerator(g *IDGenerator) {
	d.ids = g
}

func (d *Document) generator() *IDGenerator {
	if d.ids != nil {
		return d.ids
	}
	return defaultIDs
}

// ResolveID maps RootAlias to the real root id; other ids pass through.
func (d *Document) ResolveID(id string) string {
	if id == RootAlias && d.Root != nil {
		return d.Root.ID
	}
	return id
}

// IsRoot reports whether id (or RootAlias) names the document's root.
func (d *Document) IsRoot(id string) bool {
	return d.Root != nil && d.ResolveID(id) == d.Root.ID
}

// Find returns the node with the given id, searching depth-first from the
// root. The returned node is shared with the document; do not modify it.
func (d *Document) Find(id string) (*Node, error) {
	target := d.ResolveID(id)
	for v := range d.Walk() {
		if v.Node.ID == target {
			return v.Node, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
}

// Subtree returns how many nodes (the node itself included) a Delete of id
// would remove.
func (d *Document) Subtree(id string) (int, error) {
	n, err := d.Find(id)
	if err != nil {
		return 0, err
	}
	return countNodes(n), nil
}

// Add appends a new child with the given content under parentID and returns
// it. Existing children keep their order.
func (d *Document) Add(parentID, content string) (*Node, error) {
	content = normalizeContent(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	target := d.ResolveID(parentID)
	if _, err := d.Find(target); err != nil {
		return nil, fmt.Errorf("parent: %w", err)
	}

	id, err := d.generator().Generate(d)
	if err != nil {
		return nil, err
	}
	child := &Node{ID: id, Content: content, Children: []*Node{}}

	root, _ := rewrite(d.Root, target, func(parent *Node) *Node {
		return &Node{
			ID:       parent.ID,
			Content:  parent.Content,
			Children: append(slices.Clip(parent.Children), child),
		}
	})
	d.commit(root)
	return child, nil
}

// Edit replaces the content of the node with the given id. Its id and
// children are untouched.
func (d *Document) Edit(id, content string) error {
	content = normalizeContent(content)
	if content == "" {
		return ErrEmptyContent
	}
	target := d.ResolveID(id)

	root, ok := rewrite(d.Root, target, func(n *Node) *Node {
		return &Node{ID: n.ID, Content: content, Children: n.Children}
	})
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	d.commit(root)
	return nil
}

// Delete removes the node with the given id and its whole subtree, returning
// the number of nodes removed. Siblings keep their relative order. The root
// cannot be deleted.
func (d *Document) Delete(id string) (int, error) {
	if d.IsRoot(id) {
		return 0, ErrRootDeletion
	}
	target := d.ResolveID(id)

	removed := 0
	root, ok := rewrite(d.Root, target, func(n *Node) *Node {
		removed = countNodes(n)
		return nil
	})
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	d.commit(root)
	return removed, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Root = cloneNode(d.Root)
	return &c
}

// commit installs a rebuilt root and refreshes the modification time.
func (d *Document) commit(root *Node) {
	d.Root = root
	d.Modified = timeNow()
}

// rewrite returns a copy of n where the node with the given id is replaced by
// fn's result (nil removes it). Only the nodes on the path from n to the
// target are copied; untouched subtrees are shared. The bool reports whether
// the target was found.
func rewrite(n *Node, id string, fn func(*Node) *Node) (*Node, bool) {
	if n.ID == id {
		return fn(n), true
	}
	for i, child := range n.Children {
		replaced, ok := rewrite(child, id, fn)
		if !ok {
			continue
		}
		children := slices.Clone(n.Children)
		if replaced == nil {
			children = slices.Delete(children, i, i+1)
		} else {
			children[i] = replaced
		}
		return &Node{ID: n.ID, Content: n.Content, Children: children}, true
	}
	return n, false
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := &Node{ID: n.ID, Content: n.Content, Children: make([]*Node, 0, len(n.Children))}
	for _, child := range n.Children {
		c.Children = append(c.Children, cloneNode(child))
	}
	return c
}
