package tree

import (
	"fmt"
	"strings"
)

// Validate checks the structural rules a loaded document must satisfy:
// a sanitized name, a root, unique 4-digit ids and non-blank content.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: no document", ErrInvalidDocument)
	}
	if !IsValidName(d.Name) {
		return fmt.Errorf("%w: name %q is empty or contains invalid characters", ErrInvalidDocument, d.Name)
	}
	if d.Root == nil {
		return fmt.Errorf("%w: missing root node", ErrInvalidDocument)
	}
	if d.Created.IsZero() {
		return fmt.Errorf("%w: missing created timestamp", ErrInvalidDocument)
	}

	seen := make(map[string]bool)
	for v := range d.Walk() {
		n := v.Node
		if n == nil {
			return fmt.Errorf("%w: null node at depth %d", ErrInvalidDocument, v.Depth)
		}
		if n.ID == "" {
			return fmt.Errorf("%w: node at depth %d has no id", ErrInvalidDocument, v.Depth)
		}
		// Anything else could shadow RootAlias or collide with generated ids.
		if !IsValidID(n.ID) {
			return fmt.Errorf("%w: node id %q is not a 4-digit number", ErrInvalidDocument, n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidDocument, n.ID)
		}
		seen[n.ID] = true
		if strings.TrimSpace(n.Content) == "" {
			return fmt.Errorf("%w: node %q has empty content", ErrInvalidDocument, n.ID)
		}
		for _, c := range n.Children {
			if c == nil {
				return fmt.Errorf("%w: node %q has a null child", ErrInvalidDocument, n.ID)
			}
		}
	}
	return nil
}
