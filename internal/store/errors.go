package store

import "errors"

var (
	// ErrNotFound indicates a node id or address that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAddress indicates an attempt to register a placeholder at
	// an address already owned by a resolved (concrete) node.
	ErrDuplicateAddress = errors.New("address owned by resolved node")

	// ErrInvalidMetadata indicates edge metadata that fails validation
	// against the edge type's declared schema.
	ErrInvalidMetadata = errors.New("invalid edge metadata")

	// ErrUnknownEdgeType indicates an edge referencing an unregistered type.
	ErrUnknownEdgeType = errors.New("unknown edge type")
)
