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
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

func secs(n int64) timeval.T { return timeval.T(n * timeval.BaseRate) }

func keyframedTrack(id string) *track.Track {
	return &track.Track{
		ID:            id,
		Name:          id,
		Kind:          track.KindProp,
		PropValueKind: valuetype.KindFloat,
		SampleRate:    30,
		Keyframed:     true,
		Curve: []block.Keyframe{
			{Time: 0, Value: valuetype.Float(0), Interpolation: block.Linear},
			{Time: secs(1), Value: valuetype.Float(10), Interpolation: block.Linear},
			{Time: secs(2), Value: valuetype.Float(20), Interpolation: block.Linear},
		},
	}
}

// Paste compatibility: clipboard targetType float, destination track
// Prop<int> — paste fails TypeMismatch, no track is touched.
func TestPaste_TypeMismatchLeavesTrackUntouched(t *testing.T) {
	src := keyframedTrack("src")
	dst := keyframedTrack("dst")
	dst.PropValueKind = valuetype.KindInt
	tracks := map[string]*track.Track{"src": src, "dst": dst}

	clip, err := Copy(tracks, Selection{TrackIDs: []string{"src"}, Range: timeval.NewRange(0, secs(3))})
	require.NoError(t, err)
	require.Len(t, clip.Groups, 1)

	before := append([]block.Keyframe{}, dst.Curve...)
	_, err = Paste(tracks, clip, "dst", secs(5))
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.Equal(t, before, dst.Curve)
}

func TestCopyPaste_ShiftsByPlayheadOffset(t *testing.T) {
	src := keyframedTrack("src")
	dst := &track.Track{
		ID: "dst", Name: "dst", Kind: track.KindProp,
		PropValueKind: valuetype.KindFloat, SampleRate: 30, Keyframed: true,
	}
	tracks := map[string]*track.Track{"src": src, "dst": dst}

	clip, err := Copy(tracks, Selection{TrackIDs: []string{"src"}, Range: timeval.NewRange(0, secs(3))})
	require.NoError(t, err)
	require.Equal(t, timeval.T(0), clip.Time)

	_, err = Paste(tracks, clip, "dst", secs(5))
	require.NoError(t, err)

	require.Len(t, dst.Curve, 3)
	require.Equal(t, secs(5), dst.Curve[0].Time)
	require.Equal(t, secs(7), dst.Curve[2].Time)
}

func TestDelete_RemovesKeyframesInRange(t *testing.T) {
	src := keyframedTrack("src")
	tracks := map[string]*track.Track{"src": src}

	Delete(tracks, Selection{TrackIDs: []string{"src"}, Range: timeval.NewRange(secs(1), secs(3))})

	require.Len(t, src.Curve, 1)
	require.Equal(t, timeval.T(0), src.Curve[0].Time)
}

func TestCut_CopiesThenDeletes(t *testing.T) {
	src := keyframedTrack("src")
	tracks := map[string]*track.Track{"src": src}

	clip, _, err := Cut(tracks, Selection{TrackIDs: []string{"src"}, Range: timeval.NewRange(0, secs(3))})
	require.NoError(t, err)
	require.Len(t, clip.Groups, 1)
	require.Len(t, clip.Groups[0].Keyframes, 3)
	require.Empty(t, src.Curve)
}

func TestMove_ShiftsSelectedKeyframes(t *testing.T) {
	src := keyframedTrack("src")
	tracks := map[string]*track.Track{"src": src}

	_, err := Move(tracks, Selection{TrackIDs: []string{"src"}, Range: timeval.NewRange(secs(1), secs(3))}, secs(5))
	require.NoError(t, err)

	times := map[timeval.T]bool{}
	for _, k := range src.Curve {
		times[k.Time] = true
	}
	require.True(t, times[0])
	require.True(t, times[secs(6)])
	require.True(t, times[secs(7)])
}

func TestClipboard_EncodeDecodeRoundTrip(t *testing.T) {
	clip := Clipboard{
		Time: secs(1),
		Groups: []Group{
			{TrackID: "t1", TargetType: "float", Keyframes: []block.Keyframe{
				{Time: 0, Value: valuetype.Float(1.5), Interpolation: block.Cubic},
			}},
		},
	}
	data, err := EncodeClipboard(clip)
	require.NoError(t, err)

	decoded, err := DecodeClipboard(data)
	require.NoError(t, err)
	require.Equal(t, clip.Time, decoded.Time)
	require.Len(t, decoded.Groups, 1)
	require.Equal(t, "t1", decoded.Groups[0].TrackID)
	require.Equal(t, 1.5, decoded.Groups[0].Keyframes[0].Value.Float)
	require.Equal(t, block.Cubic, decoded.Groups[0].Keyframes[0].Interpolation)
}

func TestClipboard_CorruptedHashRejected(t *testing.T) {
	clip := Clipboard{Time: 0, Groups: []Group{{TrackID: "t1", TargetType: "float"}}}
	data, err := EncodeClipboard(clip)
	require.NoError(t, err)

	data[len(data)-5] ^= 0xFF
	_, err = DecodeClipboard(data)
	require.Error(t, err)
}
