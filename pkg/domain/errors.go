package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identifier does not resolve in the graph index.
var ErrNotFound = errors.New("element not found")

// ErrInvalidArgument is returned when a required argument (command, context, identifier) is missing.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrDuplicate is returned when an element is registered under an identifier already in use.
var ErrDuplicate = errors.New("duplicate identifier")

// ErrDiagramNotFound is returned when a diagram ID cannot be found in a snapshot store.
var ErrDiagramNotFound = errors.New("diagram not found")

// ElementKind names the kind of graph element an identifier was expected to resolve to.
type ElementKind string

const (
	ElementNode ElementKind = "node"
	ElementEdge ElementKind = "edge"
)

// NotFoundError reports an identifier that is absent from the index.
type NotFoundError struct {
	Kind ElementKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NodeNotFound builds the error returned for an unresolvable node ID.
func NodeNotFound(id string) error {
	return &NotFoundError{Kind: ElementNode, ID: id}
}

// EdgeNotFound builds the error returned for an unresolvable edge ID.
func EdgeNotFound(id string) error {
	return &NotFoundError{Kind: ElementEdge, ID: id}
}
