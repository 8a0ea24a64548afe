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

// Package projectcfg loads a project's YAML settings file, the same
// shape as storage.ConfigEnv: unmarshal onto a struct of yaml-tagged
// fields, then fill in defaults for anything left blank. The file also
// carries the §6.1 persisted track forest (pkg/project's TrackDoc list)
// alongside the settings, so project.yaml is the one document an editor
// shell opens and saves.
package projectcfg

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"moviecore/pkg/block"
	"moviecore/pkg/project"
	"moviecore/pkg/track"
)

// Config is a project's persisted settings plus its track forest.
type Config struct {
	SampleRate           uint32              `yaml:"sampleRate"`
	DefaultInterpolation block.Interpolation `yaml:"defaultInterpolation"`
	HistoryDir           string              `yaml:"historyDir"`
	Tracks               []project.TrackDoc  `yaml:"tracks,omitempty"`
	ConfigDir            string              `yaml:"-"`
}

const defaultSampleRate = 30

// New unmarshals projectYAML into a Config, filling defaults for any
// field left at its zero value. An empty HistoryDir defaults to "history"
// under configPath's directory; the resulting HistoryDir must be absolute,
// and a relative one is rejected rather than resolved.
func New(configPath string, projectYAML []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(projectYAML, &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal project.yaml: %w", err)
	}

	cfg.ConfigDir = filepath.Dir(configPath)

	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.HistoryDir == "" {
		cfg.HistoryDir = filepath.Join(cfg.ConfigDir, "history")
	}
	if !filepath.IsAbs(cfg.HistoryDir) {
		return nil, fmt.Errorf("historyDir %q is not an absolute path", cfg.HistoryDir)
	}

	return &cfg, nil
}

// Marshal serializes cfg back to YAML, the inverse of New.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// BuildTree decodes cfg.Tracks into a fresh *track.Tree.
func (cfg *Config) BuildTree() (*track.Tree, error) {
	return project.ToTree(cfg.Tracks)
}

// SyncTracks re-renders tree into cfg.Tracks, so a subsequent Marshal
// persists the tree's current state.
func (cfg *Config) SyncTracks(tree *track.Tree) {
	cfg.Tracks = project.FromTree(tree)
}
