package relmem

import "errors"

// ErrAllocationFailure is returned when the backing allocator refuses a
// request, or when an edge-set push would exceed its 65535-entry cap.
var ErrAllocationFailure = errors.New("relmem: allocation failure")

// ErrInvalidArgument is returned when a nil or otherwise unusable Block is
// passed where a live Block is required, when an explicit old parent is
// not found among a child's parent edges, or when an implicit steal is
// requested on a child that does not have exactly one parent edge.
var ErrInvalidArgument = errors.New("relmem: invalid argument")
