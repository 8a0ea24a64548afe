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

package edit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

// Undo atomicity: pushing "Delete" then undoing restores the exact
// pre-delete block state for every affected track, and the entry is
// gone from the log afterward.
func TestHistory_UndoRestoresExactPriorState(t *testing.T) {
	h := newTestHistory(t)

	b, err := block.NewConstant(timeval.NewRange(0, timeval.T(10*timeval.BaseRate)), valuetype.Float(3))
	require.NoError(t, err)
	prior := []TrackSnapshot{{TrackID: "t1", Blocks: []block.Block{b}}}

	seq, err := h.Push("Delete", prior)
	require.NoError(t, err)
	require.Equal(t, uint64(0), seq)

	entry, ok, err := h.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Delete", entry.Label)
	require.Equal(t, prior, entry.Prev)

	_, ok, err = h.Undo()
	require.NoError(t, err)
	require.False(t, ok, "entry should be consumed by the first Undo")
}

func TestHistory_EntriesListsInOrder(t *testing.T) {
	h := newTestHistory(t)

	_, err := h.Push("Paste", nil)
	require.NoError(t, err)
	_, err = h.Push("Delete", nil)
	require.NoError(t, err)

	entries, err := h.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Paste", entries[0].Label)
	require.Equal(t, "Delete", entries[1].Label)
}
