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

package project

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

func secs(n int64) timeval.T { return timeval.T(n * timeval.BaseRate) }

// buildFixtureTree builds a Ref track parenting one Samples-backed Prop
// track and one Keyframed Prop track, exercising every field the §6.1
// schema names.
func buildFixtureTree(t *testing.T) *track.Tree {
	tree := track.NewTree()

	ref := &track.Track{ID: "ref-1", Name: "Cube", Kind: track.KindRef, RefTargetType: "GameObject"}
	require.NoError(t, tree.AddChild(nil, ref))

	committed, err := block.NewConstant(timeval.NewRange(0, secs(1)), valuetype.Float(2.5))
	require.NoError(t, err)
	samplesProp := &track.Track{
		ID:            "prop-1",
		Name:          "opacity",
		Kind:          track.KindProp,
		PropValueKind: valuetype.KindFloat,
		SampleRate:    30,
		Locked:        true,
		Blocks:        block.NewSequence([]block.Block{committed}),
	}
	require.NoError(t, tree.AddChild(ref, samplesProp))

	keyframedProp := &track.Track{
		ID:            "prop-2",
		Name:          "position",
		Kind:          track.KindProp,
		PropValueKind: valuetype.KindVec3,
		SampleRate:    30,
		Keyframed:     true,
		Curve: []block.Keyframe{
			{Time: 0, Value: valuetype.NewVec3(valuetype.Vec3{X: 0, Y: 0, Z: 0}), Interpolation: block.Linear},
			{Time: secs(2), Value: valuetype.NewVec3(valuetype.Vec3{X: 1, Y: 2, Z: 3}), Interpolation: block.Cubic},
		},
	}
	require.NoError(t, tree.AddChild(ref, keyframedProp))

	return tree
}

func TestFromTreeToTree_RoundTrip(t *testing.T) {
	tree := buildFixtureTree(t)

	docs := FromTree(tree)
	require.Len(t, docs, 3)

	rebuilt, err := ToTree(docs)
	require.NoError(t, err)

	require.Equal(t, docs, FromTree(rebuilt))
}

func TestFromTreeToTree_SurvivesYAML(t *testing.T) {
	tree := buildFixtureTree(t)
	docs := FromTree(tree)

	data, err := yaml.Marshal(docs)
	require.NoError(t, err)

	var decoded []TrackDoc
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, docs, decoded)

	rebuilt, err := ToTree(decoded)
	require.NoError(t, err)
	require.Equal(t, docs, FromTree(rebuilt))
}

func TestToTree_ParentOrderPreserved(t *testing.T) {
	tree := buildFixtureTree(t)
	docs := FromTree(tree)

	rebuilt, err := ToTree(docs)
	require.NoError(t, err)

	prop1, err := rebuilt.Find("prop-1")
	require.NoError(t, err)
	require.Equal(t, "ref-1", prop1.Parent().ID)
	require.True(t, prop1.Locked)

	ref1, err := rebuilt.Find("ref-1")
	require.NoError(t, err)
	require.Nil(t, ref1.Parent())
}

func TestToTree_UnknownParentRejected(t *testing.T) {
	docs := []TrackDoc{
		{ID: "orphan", ParentID: "ghost", Kind: "Prop", Name: "x", TargetType: "float"},
	}
	_, err := ToTree(docs)
	require.ErrorIs(t, err, ErrMissingParent)
}

func TestToTree_UnknownTrackKindRejected(t *testing.T) {
	docs := []TrackDoc{{ID: "a", Kind: "Bogus", Name: "a"}}
	_, err := ToTree(docs)
	require.ErrorIs(t, err, ErrUnknownTrackKind)
}

func TestChecksum_StableAndSensitiveToChange(t *testing.T) {
	tree := buildFixtureTree(t)
	docs := FromTree(tree)

	sum1, err := Checksum(docs)
	require.NoError(t, err)
	sum2, err := Checksum(FromTree(tree))
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)

	prop2, err := tree.Find("prop-2")
	require.NoError(t, err)
	prop2.Curve[0].Value = valuetype.NewVec3(valuetype.Vec3{X: 9, Y: 9, Z: 9})

	sum3, err := Checksum(FromTree(tree))
	require.NoError(t, err)
	require.NotEqual(t, sum1, sum3)
}

func TestToTree_UnknownBlockKindRejected(t *testing.T) {
	docs := []TrackDoc{{
		ID: "a", Kind: "Prop", Name: "a", TargetType: "float",
		Blocks: []BlockDoc{{Kind: "Bogus"}},
	}}
	_, err := ToTree(docs)
	require.ErrorIs(t, err, ErrUnknownBlockKind)
}
