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

package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

func TestCompile_Step(t *testing.T) {
	keys := []Keyframe{
		{Time: 0, Value: valuetype.Float(1), Interpolation: Step},
		{Time: secs(1), Value: valuetype.Float(2), Interpolation: Step},
	}
	seq, err := Compile(keys, 30)
	require.NoError(t, err)
	require.Len(t, seq.All(), 1)
	b := seq.All()[0]
	require.Equal(t, KindConstant, b.Kind)
	require.Equal(t, 1.0, b.Constant.Float)
}

func TestCompile_Linear(t *testing.T) {
	keys := []Keyframe{
		{Time: 0, Value: valuetype.Float(0), Interpolation: Linear},
		{Time: secs(1), Value: valuetype.Float(10), Interpolation: Linear},
	}
	seq, err := Compile(keys, 10)
	require.NoError(t, err)
	require.Len(t, seq.All(), 1)
	b := seq.All()[0]
	require.Equal(t, KindSamples, b.Kind)
	require.Len(t, b.Samples, 10)
	require.Equal(t, 0.0, b.Samples[0].Float)
	require.Equal(t, 5.0, b.Samples[5].Float)
	require.Equal(t, 9.0, b.Samples[9].Float, "the sample at t==1 (exactly b) belongs to the next segment")
}

func TestCompile_UnsortedRejected(t *testing.T) {
	keys := []Keyframe{
		{Time: secs(1), Value: valuetype.Float(0), Interpolation: Linear},
		{Time: 0, Value: valuetype.Float(1), Interpolation: Linear},
	}
	_, err := Compile(keys, 10)
	require.ErrorIs(t, err, ErrUnsortedKeyframes)
}

func TestCompile_CubicBoundaryMirrors(t *testing.T) {
	keys := []Keyframe{
		{Time: 0, Value: valuetype.Float(0), Interpolation: Cubic},
		{Time: secs(1), Value: valuetype.Float(10), Interpolation: Cubic},
		{Time: secs(2), Value: valuetype.Float(20), Interpolation: Cubic},
	}
	seq, err := Compile(keys, 10)
	require.NoError(t, err)
	require.Len(t, seq.All(), 2)

	first := seq.All()[0]
	require.Equal(t, timeval.NewRange(0, secs(1)), first.Range)
	require.InDelta(t, 0.0, first.Samples[0].Float, 1e-9)
	require.Greater(t, first.Samples[len(first.Samples)-1].Float, first.Samples[0].Float,
		"approaching the segment's right endpoint without reaching it, which the next segment owns")
}

// Rotate With Motion: a two-keyframe linear position curve produces a
// Samples block that moves in one constant direction end to end, which
// the motion modification uses to derive a single look_at rotation for
// the whole span.
func TestCompile_LinearConstantDirectionIsMonotonic(t *testing.T) {
	keys := []Keyframe{
		{Time: 0, Value: valuetype.NewVec3(valuetype.Vec3{X: 0}), Interpolation: Linear},
		{Time: secs(1), Value: valuetype.NewVec3(valuetype.Vec3{X: 100}), Interpolation: Linear},
	}
	seq, err := Compile(keys, 60)
	require.NoError(t, err)
	samples := seq.All()[0].Samples
	require.Equal(t, 0.0, samples[0].Vec3.X)
	for i := 1; i < len(samples); i++ {
		require.Greater(t, samples[i].Vec3.X, samples[i-1].Vec3.X, "motion must be monotonic for a single constant-direction look_at rotation")
	}
}
