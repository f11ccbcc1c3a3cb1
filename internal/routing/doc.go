// Package routing computes walking routes over an indoor map graph.
//
// A Graph is built once per dataset load from flat vertex and edge records
// and is read-only afterwards. Edge weights are not stored; they are the
// Euclidean distance between the two endpoint positions.
//
// ShortestPath runs Dijkstra's algorithm between two vertex ids. Every call
// allocates its own SearchTree, so any number of queries may run against the
// same Graph concurrently.
//
// Complexity:
//
//   - Time:  O(V²) for the frontier scan, O(E) for relaxation.
//   - Space: O(V) working state per query.
//
// The frontier is scanned linearly rather than kept in a heap. Indoor maps
// have tens to low thousands of vertices, and the scan makes the tie-break
// (lowest distance, then lowest vertex id) trivially deterministic.
//
// Edge weights must be non-negative for the greedy finalization step to be
// valid. Euclidean distances always are; any other weight model that can go
// negative needs a different algorithm.
package routing
