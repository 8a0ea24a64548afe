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

func secs(n int64) timeval.T { return timeval.T(n * timeval.BaseRate) }

// Straight-line motion along +X produces an identity yaw at every frame,
// including the back-filled frame 0.
func TestRotateWithMotion_StraightLineProducesIdentityYawEverywhere(t *testing.T) {
	const rate = 60

	obj := &track.Track{ID: "obj", Name: "obj", Kind: track.KindRef}
	pos := &track.Track{
		ID: "pos", Name: "LocalPosition", Kind: track.KindProp,
		PropValueKind: valuetype.KindVec3, SampleRate: rate, Keyframed: true,
		Curve: []block.Keyframe{
			{Time: 0, Value: valuetype.NewVec3(valuetype.Vec3{X: 0, Y: 0, Z: 0}), Interpolation: block.Linear},
			{Time: secs(1), Value: valuetype.NewVec3(valuetype.Vec3{X: 100, Y: 0, Z: 0}), Interpolation: block.Linear},
		},
	}

	objects := []Object{{Ref: obj, Children: map[string]*track.Track{"LocalPosition": pos}}}
	sel := timeval.NewRange(0, secs(1))

	m := NewRotateWithMotion()
	require.True(t, m.CanStart(objects, sel))

	out, err := m.Start(objects, sel, rate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "LocalRotation", out[0].Name)

	n, err := timeval.FrameCount(sel, rate)
	require.NoError(t, err)
	period, err := timeval.FromFrames(1, rate)
	require.NoError(t, err)

	identity := valuetype.NewQuat(valuetype.Quat{X: 0, Y: 0, Z: 0, W: 1})

	var frame0, frame1 valuetype.Value
	for i := int64(0); i < n; i++ {
		at := sel.Start.Add(period.Scale(i, 1))
		v := out[0].Blocks.GetValueAt(at, valuetype.Default(valuetype.KindQuat))
		require.True(t, valuetype.AlmostEqual(v, identity, 1e-4), "frame %d: got %+v", i, v.Quat)
		if i == 0 {
			frame0 = v
		}
		if i == 1 {
			frame1 = v
		}
	}
	require.True(t, valuetype.AlmostEqual(frame0, frame1, 1e-4), "frame 0 must equal frame 1 via back-fill")
}

// An object whose position never changes across the selection emits no
// LocalRotation track at all.
func TestRotateWithMotion_StationaryObjectIsSkipped(t *testing.T) {
	const rate = 60

	obj := &track.Track{ID: "obj", Name: "obj", Kind: track.KindRef}
	pos := &track.Track{
		ID: "pos", Name: "LocalPosition", Kind: track.KindProp,
		PropValueKind: valuetype.KindVec3, SampleRate: rate, Keyframed: true,
		Curve: []block.Keyframe{
			{Time: 0, Value: valuetype.NewVec3(valuetype.Vec3{}), Interpolation: block.Linear},
			{Time: secs(1), Value: valuetype.NewVec3(valuetype.Vec3{}), Interpolation: block.Linear},
		},
	}
	objects := []Object{{Ref: obj, Children: map[string]*track.Track{"LocalPosition": pos}}}
	sel := timeval.NewRange(0, secs(1))

	m := NewRotateWithMotion()
	out, err := m.Start(objects, sel, rate)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRotateWithMotion_CanStartRequiresLocalPosition(t *testing.T) {
	m := NewRotateWithMotion()
	obj := &track.Track{ID: "obj", Name: "obj", Kind: track.KindRef}
	require.False(t, m.CanStart([]Object{{Ref: obj, Children: map[string]*track.Track{}}}, timeval.NewRange(0, secs(1))))
	require.False(t, m.CanStart(nil, timeval.NewRange(0, secs(1))))
}
