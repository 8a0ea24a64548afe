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

package modification

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

func TestMotionToAnimParameters_EmitsAllNineTracks(t *testing.T) {
	const rate = 30

	obj := &track.Track{ID: "obj", Name: "obj", Kind: track.KindRef}
	pos := &track.Track{
		ID: "pos", Name: "LocalPosition", Kind: track.KindProp,
		PropValueKind: valuetype.KindVec3, SampleRate: rate, Keyframed: true,
		Curve: []block.Keyframe{
			{Time: 0, Value: valuetype.NewVec3(valuetype.Vec3{}), Interpolation: block.Linear},
			{Time: secs(1), Value: valuetype.NewVec3(valuetype.Vec3{X: 30, Y: 0, Z: 0}), Interpolation: block.Linear},
		},
	}
	objects := []Object{{Ref: obj, Children: map[string]*track.Track{"LocalPosition": pos}}}
	sel := timeval.NewRange(0, secs(1))

	m := NewMotionToAnimParameters()
	require.True(t, m.CanStart(objects, sel))

	out, err := m.Start(objects, sel, rate)
	require.NoError(t, err)
	require.Len(t, out, len(animParamNames))

	gotNames := make(map[string]bool, len(out))
	for _, ct := range out {
		gotNames[ct.Name] = true
	}
	for _, name := range animParamNames {
		require.True(t, gotNames[name], "missing %s", name)
	}

	for _, ct := range out {
		if ct.Name == "speed" {
			v := ct.Blocks.GetValueAt(secs(1)-1, valuetype.Default(valuetype.KindFloat))
			require.InDelta(t, 30.0, v.Float, 1e-6)
		}
	}
}

func TestMotionToAnimParameters_RequiresTwoSamples(t *testing.T) {
	const rate = 30
	obj := &track.Track{ID: "obj", Name: "obj", Kind: track.KindRef}
	pos := &track.Track{
		ID: "pos", Name: "LocalPosition", Kind: track.KindProp,
		PropValueKind: valuetype.KindVec3, SampleRate: rate,
		Blocks: block.NewSequence(nil),
	}
	objects := []Object{{Ref: obj, Children: map[string]*track.Track{"LocalPosition": pos}}}
	sel := timeval.NewRange(0, 0)

	m := NewMotionToAnimParameters()
	out, err := m.Start(objects, sel, rate)
	require.NoError(t, err)
	require.Empty(t, out)
}
