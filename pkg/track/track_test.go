// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddChild_DuplicateNameRejected(t *testing.T) {
	tr := NewTree()
	root := &Track{ID: "a", Name: "actor", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, root))

	dup := &Track{ID: "b", Name: "actor", Kind: KindRef}
	err := tr.AddChild(nil, dup)
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestAddChild_LockedParentRejected(t *testing.T) {
	tr := NewTree()
	parent := &Track{ID: "p", Name: "parent", Kind: KindRef, Locked: true}
	require.NoError(t, tr.AddChild(nil, parent))

	child := &Track{ID: "c", Name: "child", Kind: KindProp}
	err := tr.AddChild(parent, child)
	require.ErrorIs(t, err, ErrLocked)
}

func TestRemove_RecursivelyDeletesDescendants(t *testing.T) {
	tr := NewTree()
	root := &Track{ID: "r", Name: "root", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, root))
	child := &Track{ID: "c", Name: "child", Kind: KindProp}
	require.NoError(t, tr.AddChild(root, child))
	grandchild := &Track{ID: "g", Name: "grandchild", Kind: KindProp}
	require.NoError(t, tr.AddChild(child, grandchild))

	require.NoError(t, tr.Remove("r"))

	_, err := tr.Find("r")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Find("c")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Find("g")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIterDepthFirstAndPath(t *testing.T) {
	tr := NewTree()
	root := &Track{ID: "r", Name: "root", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, root))
	child := &Track{ID: "c", Name: "child", Kind: KindProp}
	require.NoError(t, tr.AddChild(root, child))

	order := tr.IterDepthFirst()
	require.Len(t, order, 2)
	require.Equal(t, root, order[0])
	require.Equal(t, child, order[1])

	require.Equal(t, []string{"root", "child"}, Path(child))
}

func TestReparent_CycleRejected(t *testing.T) {
	tr := NewTree()
	root := &Track{ID: "r", Name: "root", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, root))
	child := &Track{ID: "c", Name: "child", Kind: KindRef}
	require.NoError(t, tr.AddChild(root, child))

	err := tr.Reparent(root, child)
	require.ErrorIs(t, err, ErrCycle)
}

func TestReparent_Moves(t *testing.T) {
	tr := NewTree()
	a := &Track{ID: "a", Name: "a", Kind: KindRef}
	b := &Track{ID: "b", Name: "b", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, a))
	require.NoError(t, tr.AddChild(nil, b))
	child := &Track{ID: "c", Name: "child", Kind: KindProp}
	require.NoError(t, tr.AddChild(a, child))

	require.NoError(t, tr.Reparent(child, b))
	require.Equal(t, b, child.Parent())
	require.Len(t, a.Children(), 0)
	require.Len(t, b.Children(), 1)
}

func TestFindChild_RootsWhenParentNil(t *testing.T) {
	tr := NewTree()
	root := &Track{ID: "r", Name: "root", Kind: KindRef}
	require.NoError(t, tr.AddChild(nil, root))

	found, ok := tr.FindChild(nil, "root")
	require.True(t, ok)
	require.Equal(t, root, found)

	_, ok = tr.FindChild(nil, "missing")
	require.False(t, ok)
}
