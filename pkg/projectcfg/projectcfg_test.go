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

package projectcfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

func TestNew_FillsDefaults(t *testing.T) {
	cfg, err := New("/projects/foo/project.yaml", []byte(""))
	require.NoError(t, err)
	require.EqualValues(t, defaultSampleRate, cfg.SampleRate)
	require.Equal(t, "/projects/foo/history", cfg.HistoryDir)
	require.Equal(t, "/projects/foo", cfg.ConfigDir)
}

func TestNew_HonorsExplicitFields(t *testing.T) {
	cfg, err := New("/projects/foo/project.yaml", []byte("sampleRate: 60\nhistoryDir: /data/hist\n"))
	require.NoError(t, err)
	require.EqualValues(t, 60, cfg.SampleRate)
	require.Equal(t, "/data/hist", cfg.HistoryDir)
}

func TestNew_RejectsRelativeHistoryDir(t *testing.T) {
	_, err := New("/projects/foo/project.yaml", []byte("historyDir: rel/path\n"))
	require.Error(t, err)
}

func TestMarshal_RoundTrips(t *testing.T) {
	cfg, err := New("/projects/foo/project.yaml", []byte("sampleRate: 24\n"))
	require.NoError(t, err)

	out, err := Marshal(cfg)
	require.NoError(t, err)

	cfg2, err := New("/projects/foo/project.yaml", out)
	require.NoError(t, err)
	require.Equal(t, cfg.SampleRate, cfg2.SampleRate)
}

func TestConfig_TracksRoundTripThroughYAML(t *testing.T) {
	cfg, err := New("/projects/foo/project.yaml", []byte("sampleRate: 30\n"))
	require.NoError(t, err)

	tree := track.NewTree()
	ref := &track.Track{ID: "ref-1", Name: "Cube", Kind: track.KindRef, RefTargetType: "GameObject"}
	require.NoError(t, tree.AddChild(nil, ref))
	prop := &track.Track{
		ID: "prop-1", Name: "opacity", Kind: track.KindProp,
		PropValueKind: valuetype.KindFloat, SampleRate: 30,
	}
	require.NoError(t, tree.AddChild(ref, prop))

	cfg.SyncTracks(tree)
	out, err := Marshal(cfg)
	require.NoError(t, err)

	cfg2, err := New("/projects/foo/project.yaml", out)
	require.NoError(t, err)
	require.Equal(t, cfg.Tracks, cfg2.Tracks)

	rebuilt, err := cfg2.BuildTree()
	require.NoError(t, err)
	found, err := rebuilt.Find("prop-1")
	require.NoError(t, err)
	require.Equal(t, "ref-1", found.Parent().ID)
}
