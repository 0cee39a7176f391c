package apptype

import "errors"

// Sentinel errors shared by the graph store, vector index and workflow.
// Check them with errors.Is; concrete errors wrap them with context.
var (
	// ErrConnection indicates the graph engine or vector index could not be reached.
	ErrConnection = errors.New("connection error")

	// ErrQuerySyntax indicates the graph engine rejected a malformed statement.
	ErrQuerySyntax = errors.New("query syntax error")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNamespaceNotFound indicates a query against a namespace that holds no entries.
	ErrNamespaceNotFound = errors.New("namespace not found")
)
