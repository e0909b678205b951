// Package relmem implements a relational memory manager: every allocation
// is attached to a directed graph of parent/child ownership edges and is
// freed automatically once it becomes unreachable from any externally held
// root.
//
// A Block is allocated by naming a parent Block (or nil, for a root held
// by the caller); the new Block becomes a child of that parent. A Block may
// have multiple parent edges (reference counting by distinct edges, not by
// distinct parents — the same parent may incref the same child twice), an
// optional destructor run exactly once before its storage is reclaimed, an
// optional tag used for debugging and type-ensure checks, and may be
// grouped with sibling Blocks that share one joint lifetime: a sibling
// group dies together, all at once, when the group's combined parent-edge
// count reaches zero.
//
// The package is not safe for concurrent use: every exported function
// assumes exclusive access to the graph, matching the single-threaded
// model of the C library ("libsc") this package's semantics are ported
// from. It is not a tracing collector: a cycle of parent edges never
// reaches zero parent edges and will leak for the lifetime of the
// program, exactly as documented for the original library.
package relmem
