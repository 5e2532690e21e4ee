// Package depgraph provides the dependency-ordering core shared by the
// module loader and the hook registry. It builds a directed graph of named
// nodes and linearizes it with a frontier-tracking variant of Kahn's
// algorithm: at every step the set of nodes whose dependencies are already
// placed is known explicitly, so ties can be broken by a caller-supplied
// comparator and, when the frontier empties early, the leftover nodes are
// exactly the cycle participants.
//
// A Graph is built and ordered within a single pass and is not safe for
// concurrent use.
package depgraph
