package routing

import "errors"

// Sentinel errors returned by the routing package. Callers match them with
// errors.Is; the returned values wrap them with the offending ids.
var (
	// ErrMalformedGraph is returned by Build when an edge references a vertex
	// that is not part of the dataset, when two vertices share an id, or when
	// an id is negative. The whole dataset is rejected.
	ErrMalformedGraph = errors.New("routing: malformed graph")

	// ErrUnknownVertex is returned when a query names a source or target id
	// that is not present in the graph.
	ErrUnknownVertex = errors.New("routing: unknown vertex")

	// ErrNoPath reports that the target is not reachable from the source.
	// It is a normal outcome of a valid query, not a failure.
	ErrNoPath = errors.New("routing: no path")

	// ErrBrokenChain is returned when the parent chain of a search tree does
	// not lead back to the source. It indicates a bug, never bad input.
	ErrBrokenChain = errors.New("routing: broken parent chain")

	// ErrInternal is returned when a search exceeds its iteration cap.
	ErrInternal = errors.New("routing: internal error")
)

// IsFailure reports whether err is an error that should abort the caller's
// operation. ErrNoPath is an expected result and is not a failure.
func IsFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrNoPath)
}
