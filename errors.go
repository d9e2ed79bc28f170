package deplink

import (
	"errors"

	"github.com/mineclover/dependency-linker-sub002/internal/store"
)

var (
	// ErrInvalidAddress indicates a malformed RDF address or invalid
	// uniqueness-validation input. The store is never touched.
	ErrInvalidAddress = errors.New("invalid rdf address")

	// ErrConfig indicates a missing or unreadable namespace configuration.
	// Configuration failures are fatal and abort the whole operation.
	ErrConfig = errors.New("configuration error")

	// ErrNamespaceNotFound indicates a namespace name absent from the
	// loaded configuration. Fatal, like ErrConfig.
	ErrNamespaceNotFound = errors.New("namespace not defined in configuration")

	// ErrNotFound is raised for unknown node ids.
	ErrNotFound = store.ErrNotFound

	// ErrDuplicateAddress is raised when registering a placeholder at an
	// address already owned by a resolved node.
	ErrDuplicateAddress = store.ErrDuplicateAddress

	// ErrInvalidMetadata is raised when edge metadata fails schema
	// validation at creation time.
	ErrInvalidMetadata = store.ErrInvalidMetadata

	// ErrUnknownEdgeType is raised when an edge or query names an edge
	// type that was never registered.
	ErrUnknownEdgeType = store.ErrUnknownEdgeType
)
