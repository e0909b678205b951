package relmem

import "unsafe"

// New allocates a single T as a child of parent, the Go-generic
// equivalent of libsc's sc_new macro (which expands to
// sc_calloc(p, sizeof(t), 1, #t)).
func New[T any](parent *Block, tag string) (*Block, error) {
	var zero T
	return AllocZeroed(parent, int(unsafe.Sizeof(zero)), 0, tag)
}

// NewUninitialized is like New but does not zero the payload, matching
// libsc's sc_malloc macro.
func NewUninitialized[T any](parent *Block, tag string) (*Block, error) {
	var zero T
	return Alloc(parent, int(unsafe.Sizeof(zero)), 0, tag)
}

// NewArray allocates count contiguous, zeroed Ts as a child of parent,
// the equivalent of libsc's sc_newa0 macro.
func NewArray[T any](parent *Block, count int, tag string) (*Block, error) {
	var zero T
	return AllocZeroed(parent, int(unsafe.Sizeof(zero))*count, 0, tag)
}

// NewArrayUninitialized is like NewArray but does not zero the payload,
// matching libsc's sc_newa macro.
func NewArrayUninitialized[T any](parent *Block, count int, tag string) (*Block, error) {
	var zero T
	return Alloc(parent, int(unsafe.Sizeof(zero))*count, 0, tag)
}

// As reinterprets b's payload as a *T. The caller is responsible for b
// having been allocated with at least unsafe.Sizeof(T) bytes; As panics
// on a nil or too-small Block, same as indexing past the end of a slice.
func As[T any](b *Block) *T {
	var zero T
	if b.Size() < int(unsafe.Sizeof(zero)) {
		panic("relmem: As: payload smaller than the requested type")
	}
	return (*T)(unsafe.Pointer(&b.payload[0]))
}

// Items reinterprets b's payload as a []T of b.Size()/sizeof(T) elements,
// the equivalent of libsc's sc_size_items combined with a cast.
func Items[T any](b *Block) []T {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize == 0 || b.Size() == 0 {
		return nil
	}
	count := b.Size() / elemSize
	return unsafe.Slice((*T)(unsafe.Pointer(&b.payload[0])), count)
}
