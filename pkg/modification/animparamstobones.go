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
	"fmt"

	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

// ShadowModel is the host-implemented capability that drives an offline
// animation graph: a throwaway instance of a skinned model, stepped frame
// by frame to bake its bone output into tracks. The scene runtime itself
// is an external collaborator the core never imports, so every
// modification that needs live animation evaluation is handed one of
// these rather than reaching into the scene directly.
type ShadowModel interface {
	// SetParameter feeds one animation-graph parameter value, as it would
	// arrive from a running scene's blend tree inputs.
	SetParameter(name string, v valuetype.Value)
	// Advance steps the animation graph forward by delta.
	Advance(delta timeval.T)
	// BoneTransform reads a bone's current parent-space transform.
	BoneTransform(bone string) (valuetype.Transform, bool)
	// Bones lists every bone name the model exposes, in no particular order.
	Bones() []string
	// Release discards the shadow instance once baking finishes.
	Release()
}

// ShadowModelFactory spins up a ShadowModel for one renderer track.
type ShadowModelFactory func(renderer *track.Track) (ShadowModel, error)

// AnimParamsToBones bakes a skinned-model renderer's animation-graph
// parameter tracks into one Transform track per bone, by driving a
// throwaway ShadowModel at the project's sample rate and reading back its
// bone poses.
type AnimParamsToBones struct {
	newShadow ShadowModelFactory
	cancelled bool
}

// NewAnimParamsToBones returns a modification backed by factory for
// spinning up shadow models.
func NewAnimParamsToBones(factory ShadowModelFactory) *AnimParamsToBones {
	return &AnimParamsToBones{newShadow: factory}
}

// Name implements Modification.
func (m *AnimParamsToBones) Name() string { return "Anim Params To Bones" }

// CanStart requires every object's Ref to be a skinned-model renderer,
// i.e. to carry at least one animation-graph parameter child track.
func (m *AnimParamsToBones) CanStart(objects []Object, _ timeval.Range) bool {
	if len(objects) == 0 {
		return false
	}
	for _, o := range objects {
		if len(o.Children) == 0 {
			return false
		}
	}
	return true
}

// Cancel implements Modification.
func (m *AnimParamsToBones) Cancel() { m.cancelled = true }

// Start implements Modification.
func (m *AnimParamsToBones) Start(objects []Object, selection timeval.Range, sampleRate uint32) ([]CompiledTrack, error) {
	m.cancelled = false

	period, err := timeval.FromFrames(1, sampleRate)
	if err != nil {
		return nil, err
	}
	n, err := timeval.FrameCount(selection, sampleRate)
	if err != nil {
		return nil, err
	}

	var out []CompiledTrack
	for _, o := range objects {
		if m.cancelled {
			return nil, ErrCancelled
		}
		if len(o.Children) == 0 {
			continue
		}

		paramSeries := make(map[string][]valuetype.Value, len(o.Children))
		for name, t := range o.Children {
			values, err := sampleTrack(t, selection, sampleRate)
			if err != nil {
				return nil, err
			}
			paramSeries[name] = values
		}

		shadow, err := m.newShadow(o.Ref)
		if err != nil {
			return nil, fmt.Errorf("could not start shadow model for %s: %w", o.Ref.ID, err)
		}

		perBone := make(map[string][]valuetype.Value, len(shadow.Bones()))
		for _, bone := range shadow.Bones() {
			perBone[bone] = make([]valuetype.Value, n)
		}

		for i := int64(0); i < n; i++ {
			if m.cancelled {
				shadow.Release()
				return nil, ErrCancelled
			}
			for name, values := range paramSeries {
				if int64(len(values)) > i {
					shadow.SetParameter(name, values[i])
				}
			}
			shadow.Advance(period)

			for _, bone := range shadow.Bones() {
				xf, ok := shadow.BoneTransform(bone)
				if !ok {
					continue
				}
				perBone[bone][i] = valuetype.NewTransform(xf)
			}
		}
		shadow.Release()

		for bone, values := range perBone {
			seq, err := buildSequence(selection, sampleRate, values)
			if err != nil {
				return nil, err
			}
			out = append(out, CompiledTrack{Ref: o.Ref, Name: "Bones." + bone, Blocks: seq})
		}
	}
	return out, nil
}
