package relmem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/npmccallum/relmem"
)

func TestIncrefDecrefBalance(t *testing.T) {
	root, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	child, err := relmem.Alloc(root, 8, 0, "")
	require.NoError(t, err)

	_, err = relmem.Incref(root, child)
	require.NoError(t, err)
	require.Equal(t, 2, child.ParentCount())
	require.Equal(t, 2, root.ChildCount())

	relmem.Decref(root, child)
	require.Equal(t, 1, child.ParentCount())
	require.Equal(t, 1, root.ChildCount())

	destroyed := false
	child.DestructorSet(func([]byte) { destroyed = true })
	relmem.Decref(root, child)
	require.True(t, destroyed)
	require.Equal(t, 0, root.ChildCount())
}

func TestDecrefNilChildIsNoop(t *testing.T) {
	require.NotPanics(t, func() {
		relmem.Decref(nil, nil)
	})
}

func TestIncrefNilChildFails(t *testing.T) {
	_, err := relmem.Incref(nil, nil)
	require.ErrorIs(t, err, relmem.ErrInvalidArgument)
}

func TestResizePreservesGraphAndPrefix(t *testing.T) {
	root, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	child, err := relmem.Alloc(root, 4, 0, "")
	require.NoError(t, err)
	copy(child.Payload(), []byte{1, 2, 3, 4})

	require.NoError(t, child.Resize(16))
	require.Equal(t, 16, child.Size())
	require.Equal(t, []byte{1, 2, 3, 4}, child.Payload()[:4])
	require.Equal(t, 1, child.ParentCount())
	require.Equal(t, 1, root.ChildCount())

	require.NoError(t, child.Resize(2))
	require.Equal(t, []byte{1, 2}, child.Payload())
}

func TestResizeNilFails(t *testing.T) {
	var b *relmem.Block
	require.ErrorIs(t, b.Resize(4), relmem.ErrInvalidArgument)
}

func TestStealPreservesChildIdentityAndTotalParentCount(t *testing.T) {
	a, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	b, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	child, err := relmem.Alloc(a, 8, 0, "")
	require.NoError(t, err)

	before := child.ParentCount()

	moved, err := relmem.Steal(b, child, a)
	require.NoError(t, err)
	require.Same(t, child, moved)
	require.Equal(t, before, child.ParentCount())
	require.Equal(t, 0, a.ChildCount())
	require.Equal(t, 1, b.ChildCount())
}

func TestStealImplicitRequiresExactlyOneParent(t *testing.T) {
	a, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	b, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	child, err := relmem.Alloc(a, 8, 0, "")
	require.NoError(t, err)
	_, err = relmem.Incref(b, child)
	require.NoError(t, err)

	_, err = relmem.Steal(nil, child, nil)
	require.ErrorIs(t, err, relmem.ErrInvalidArgument)
}

func TestStealExplicitOldParentNotFoundFails(t *testing.T) {
	a, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	unrelated, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	child, err := relmem.Alloc(a, 8, 0, "")
	require.NoError(t, err)

	_, err = relmem.Steal(nil, child, unrelated)
	require.ErrorIs(t, err, relmem.ErrInvalidArgument)
}

func TestGroupAssociativity(t *testing.T) {
	a, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	b, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	c, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)

	var order []int
	a.DestructorSet(func([]byte) { order = append(order, 1) })
	b.DestructorSet(func([]byte) { order = append(order, 2) })
	c.DestructorSet(func([]byte) { order = append(order, 3) })

	relmem.Group(a, b)
	relmem.Group(b, c)

	relmem.Decref(nil, a)
	require.Empty(t, order, "group must stay alive until every member's parent edges are gone")
	relmem.Decref(nil, b)
	require.Empty(t, order)
	relmem.Decref(nil, c)
	require.ElementsMatch(t, []int{1, 2, 3}, order)
}

func TestGroupNilArgumentsAreNoop(t *testing.T) {
	a, err := relmem.Alloc(nil, 8, 0, "")
	require.NoError(t, err)
	require.NotPanics(t, func() {
		relmem.Group(nil, a)
		relmem.Group(a, nil)
	})
}
