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

	"moviecore/pkg/valuetype"
)

func TestKeyframeCodecRoundTrip(t *testing.T) {
	keys := []Keyframe{
		{Time: 0, Value: valuetype.Float(1.5), Interpolation: Linear},
		{Time: secs(1), Value: valuetype.NewVec3(valuetype.Vec3{X: 1, Y: 2, Z: 3}), Interpolation: Cubic},
		{Time: secs(2), Value: valuetype.NewAction(valuetype.Action{Payload: []byte("fire")}), Interpolation: Step},
	}

	encoded, err := EncodeKeyframes(keys)
	require.NoError(t, err)

	decoded, err := DecodeKeyframes(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(keys))

	for i, k := range keys {
		require.Equal(t, k.Time, decoded[i].Time)
		require.Equal(t, k.Interpolation, decoded[i].Interpolation)
		require.True(t, valuetype.Equal(k.Value, decoded[i].Value))
	}
}

func TestDecodeKeyframes_Empty(t *testing.T) {
	decoded, err := DecodeKeyframes(nil)
	require.NoError(t, err)
	require.Empty(t, decoded)
}
