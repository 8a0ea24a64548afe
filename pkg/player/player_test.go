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

package player

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/binder"
	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

type fakeTarget struct{}

func (fakeTarget) TypeName() string { return "Actor" }

type fakeScene struct {
	table binder.PropertyTable
}

func (s *fakeScene) Resolve(id string) (binder.SceneTarget, bool) {
	if id == "obj" {
		return fakeTarget{}, true
	}
	return nil, false
}

func (s *fakeScene) PropertyTable(typeName string) (binder.PropertyTable, bool) {
	if typeName == "Actor" {
		return s.table, true
	}
	return nil, false
}

func secs(n int64) timeval.T { return timeval.T(n * timeval.BaseRate) }

// Within one sample step, all property writes complete before bone
// composition runs, which completes before anything downstream observes
// the tick.
func TestPlayer_WritesBeforeCompose(t *testing.T) {
	var order []string
	var written float64

	scene := &fakeScene{table: binder.PropertyTable{
		"health": binder.PropertyEntry{
			Kind: valuetype.KindFloat,
			Accessor: func(binder.SceneTarget) binder.PropertyAccessor {
				return binder.PropertyAccessor{
					Write: func(v valuetype.Value) error {
						order = append(order, "write")
						written = v.Float
						return nil
					},
				}
			},
		},
	}}
	b := binder.New(scene, nil)

	refTrack := &track.Track{ID: "obj", Kind: track.KindRef, Name: "actor"}
	propTrack := &track.Track{ID: "p1", Kind: track.KindProp, Name: "health", PropValueKind: valuetype.KindFloat}
	tree := track.NewTree()
	require.NoError(t, tree.AddChild(nil, refTrack))
	require.NoError(t, tree.AddChild(refTrack, propTrack))

	seq, err := block.NewConstant(timeval.NewRange(0, secs(10)), valuetype.Float(42))
	require.NoError(t, err)
	propTrack.Blocks = block.NewSequence([]block.Block{seq})

	p := New(func() { order = append(order, "compose") })
	p.SetBinder(b)
	p.SetClip(NewClip([]*track.Track{propTrack}))

	p.SetTime(secs(1))

	require.Equal(t, []string{"write", "compose"}, order)
	require.Equal(t, 42.0, written)
}

func TestPlayer_UnresolvedTrackIsSkippedNotAborted(t *testing.T) {
	scene := &fakeScene{table: binder.PropertyTable{}}
	b := binder.New(scene, nil)

	refTrack := &track.Track{ID: "missing", Kind: track.KindRef, Name: "actor"}
	propTrack := &track.Track{ID: "p1", Kind: track.KindProp, Name: "health", PropValueKind: valuetype.KindFloat}
	tree := track.NewTree()
	require.NoError(t, tree.AddChild(nil, refTrack))
	require.NoError(t, tree.AddChild(refTrack, propTrack))

	composed := false
	p := New(func() { composed = true })
	p.SetBinder(b)
	p.SetClip(NewClip([]*track.Track{propTrack}))

	require.NotPanics(t, func() { p.SetTime(secs(1)) })
	require.True(t, composed, "compose still runs even when every write was skipped")
}

func TestClip_MutedFiltersRecordingTracks(t *testing.T) {
	a := &track.Track{ID: "a", Kind: track.KindProp, Name: "a"}
	bTrack := &track.Track{ID: "b", Kind: track.KindProp, Name: "b"}
	clip := NewClip([]*track.Track{a, bTrack})

	filtered := clip.Muted(map[string]bool{"a": true})
	require.Len(t, filtered.Properties, 1)
	require.Equal(t, "b", filtered.Properties[0].ID)
}

func TestPlayer_AdvanceNoopWhenPaused(t *testing.T) {
	p := New(nil)
	p.SetTime(secs(5))
	p.Pause()
	p.Advance(secs(1))
	require.Equal(t, secs(5), p.time)
}

func TestPlayer_AdvanceMovesTimeWhenPlaying(t *testing.T) {
	p := New(nil)
	p.Play()
	p.Advance(secs(2))
	require.Equal(t, secs(2), p.time)
}
