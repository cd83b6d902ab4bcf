package tree

import "errors"

// Validation errors
var (
	// ErrEmptyName indicates a document name that is empty after sanitizing.
	ErrEmptyName = errors.New("document name is empty")

	// ErrEmptyContent indicates blank node content.
	ErrEmptyContent = errors.New("node content is empty")
)

// Lookup errors
var (
	// ErrNodeNotFound indicates that no node in the document has the given id.
	ErrNodeNotFound = errors.New("node not found")

	// ErrRootDeletion indicates an attempt to delete the document's root.
	ErrRootDeletion = errors.New("the root node cannot be deleted")
)

// Identifier errors
var (
	// ErrIDSpaceExhausted indicates every id in the generator's range is in use.
	ErrIDSpaceExhausted = errors.New("no free node ids left")
)

// Structure errors
var (
	// ErrInvalidDocument indicates a document that breaks a structural rule
	// (missing root, duplicate ids, empty content...).
	ErrInvalidDocument = errors.New("invalid document")
)
