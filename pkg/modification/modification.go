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

// Package modification implements the read-only analysis pipeline that
// turns a track selection into derived property tracks: Rotate With
// Motion, Motion To Anim Parameters, Anim Params To Bones. The
// registration shape (package-level Register call, one file per
// modification, init()-time self-registration into a package-level
// default Registry) is grounded on addon.go's hookList plus
// addons/motion/backend.go's func init(); since this package can't
// import the root moviecore package without a cycle the way backend.go
// imports nvr, modifications register themselves into this package's own
// defaultRegistry instead, and NewRegistryWithDefaults is what moviecore
// Open() calls to seed a Context's Registry from it. AnimParamsToBones
// needs a host-supplied ShadowModelFactory, so it's registered by a
// ModificationHook at Context construction time instead.
package modification

import (
	"errors"
	"fmt"
	"sync"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

// ErrCancelled is returned by Start when Cancel was called mid-emission;
// partially emitted output is discarded.
var ErrCancelled = errors.New("modification: cancelled")

// Object is one selected scene object: its Ref track plus the Prop
// tracks resolved under it by property name.
type Object struct {
	Ref      *track.Track
	Children map[string]*track.Track
}

// CompiledTrack is one modification's output: a property name to be
// applied under an object's Ref track, and the block sequence for it.
type CompiledTrack struct {
	Ref    *track.Track
	Name   string
	Blocks *block.Sequence
}

// Modification is a read-only analysis: (objects, selection) -> compiled
// output tracks, gated by CanStart.
type Modification interface {
	Name() string
	CanStart(objects []Object, selection timeval.Range) bool
	Start(objects []Object, selection timeval.Range, sampleRate uint32) ([]CompiledTrack, error)
	Cancel()
}

// Registry holds every modification available to the editor shell,
// mirroring hookList's append-on-Register, lookup-by-iteration shape.
type Registry struct {
	mu   sync.Mutex
	mods []Modification
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds m to the registry.
func (r *Registry) Register(m Modification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = append(r.mods, m)
}

// Available returns every registered modification whose CanStart accepts
// the given objects and selection.
func (r *Registry) Available(objects []Object, selection timeval.Range) []Modification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Modification
	for _, m := range r.mods {
		if m.CanStart(objects, selection) {
			out = append(out, m)
		}
	}
	return out
}

// defaultRegistry collects every modification that self-registers via
// init(), the in-package stand-in for a root-level hookList.
var defaultRegistry = NewRegistry()

// RegisterDefault adds m to defaultRegistry. Called from a modification's
// own init(), one per file, the way addons/motion/backend.go's init()
// calls nvr.RegisterMonitorMainProcessHook.
func RegisterDefault(m Modification) {
	defaultRegistry.Register(m)
}

// NewRegistryWithDefaults returns a fresh Registry pre-loaded with every
// defaultRegistry modification — the set every Context starts with
// before its host-supplied ModificationHooks run.
func NewRegistryWithDefaults() *Registry {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	r := NewRegistry()
	r.mods = append(r.mods, defaultRegistry.mods...)
	return r
}

// sampleTrack samples t's value at every frame of sel at rate, from its
// committed Blocks (compiling its Curve first if t is Keyframed).
func sampleTrack(t *track.Track, sel timeval.Range, rate uint32) ([]valuetype.Value, error) {
	seq := t.Blocks
	if t.Keyframed {
		compiled, err := block.Compile(t.Curve, rate)
		if err != nil {
			return nil, fmt.Errorf("could not compile track %s: %w", t.ID, err)
		}
		seq = compiled
	}
	if seq == nil {
		return nil, nil
	}

	n, err := timeval.FrameCount(sel, rate)
	if err != nil {
		return nil, err
	}
	period, err := timeval.FromFrames(1, rate)
	if err != nil {
		return nil, err
	}
	def := valuetype.Default(t.PropValueKind)

	out := make([]valuetype.Value, n)
	for i := int64(0); i < n; i++ {
		t := sel.Start.Add(period.Scale(i, 1))
		out[i] = seq.GetValueAt(t, def)
	}
	return out, nil
}

// buildSequence wraps values into one Constant block (when every sample
// is approximately equal) or one Samples block, over sel at rate.
func buildSequence(sel timeval.Range, rate uint32, values []valuetype.Value) (*block.Sequence, error) {
	if len(values) == 0 {
		return block.NewSequence(nil), nil
	}
	if allAlmostEqual(values) {
		b, err := block.NewConstant(sel, values[0])
		if err != nil {
			return nil, err
		}
		return block.NewSequence([]block.Block{b}), nil
	}
	b, err := block.NewSamples(sel, rate, values)
	if err != nil {
		return nil, err
	}
	return block.NewSequence([]block.Block{b}), nil
}

func allAlmostEqual(values []valuetype.Value) bool {
	for i := 1; i < len(values); i++ {
		if !valuetype.AlmostEqual(values[0], values[i], 0) {
			return false
		}
	}
	return true
}
