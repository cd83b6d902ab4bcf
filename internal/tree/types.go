// Package tree implements the in-memory note tree: a Document that owns
// exactly one root Node, each Node owning an ordered list of children.
//
// Design principles:
//   - Copy-on-write: mutations rebuild the path from the root to the
//     target node and swap the root pointer only once everything succeeded,
//     so a failed operation never leaves a half-edited document behind.
//   - Node ids are unique across the whole document, not just among siblings.
//   - The root is never deleted, only edited.
package tree

import (
	"strings"
	"time"
)

// RootAlias can be used anywhere a node id is expected to mean "the root".
const RootAlias = "root"

// Node is one identified piece of content in the tree.
//
// Nodes reachable from a Document are shared between document versions and
// must be treated as read-only; use the Document methods to change them.
type Node struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	Children []*Node `json:"children"`
}

// Document is the persisted unit: metadata plus one root node.
type Document struct {
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Root     *Node     `json:"root"`

	ids *IDGenerator
}

// SanitizeName reduces a document name to letters, digits, underscores
// and hyphens. Whitespace runs become a single underscore; every other
// character is dropped.
// Example: "My Project: v2!" → "My_Project_v2"
func SanitizeName(name string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-':
			b.WriteRune(r)
			prevSpace = false
		case r == ' ' || r == '\t':
			if !prevSpace {
				b.WriteByte('_')
				prevSpace = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// IsValidName reports whether name is already in sanitized form.
func IsValidName(name string) bool {
	return name != "" && SanitizeName(name) == name
}

// normalizeContent trims surrounding whitespace from node content.
func normalizeContent(content string) string {
	return strings.TrimSpace(content)
}
