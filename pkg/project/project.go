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

// Package project converts between a track.Tree and its persisted §6.1
// document form: an ordered list of tracks, each carrying its parent by
// GUID and, for Prop tracks, either a committed block sequence or a
// keyframe curve. Values travel through valuetype's binary codec,
// base64'd into the document the same way pkg/edit's clipboard carries
// keyframe values, so the document stays a single text blob while still
// round-tripping every Value kind bit-exactly.
package project

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v2"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

// ErrUnknownTrackKind is returned when a TrackDoc's Kind tag isn't "Ref"
// or "Prop".
var ErrUnknownTrackKind = errors.New("project: unknown track kind")

// ErrUnknownBlockKind is returned when a BlockDoc's Kind tag isn't one of
// "Constant", "Samples", or "Action".
var ErrUnknownBlockKind = errors.New("project: unknown block kind")

// ErrMissingParent is returned by ToTree when a TrackDoc names a ParentID
// that doesn't match any earlier document in the list.
var ErrMissingParent = errors.New("project: track references an undefined parent")

// TrackDoc is one §6.1 track entry. ParentID is empty at a forest root.
// Exactly one of Blocks or Keyframes is populated for a Prop track,
// selected by Keyframed; both are empty for a Ref track.
type TrackDoc struct {
	ID         string        `yaml:"id" json:"id"`
	ParentID   string        `yaml:"parentId,omitempty" json:"parentId,omitempty"`
	Kind       string        `yaml:"kind" json:"kind"`
	Name       string        `yaml:"name" json:"name"`
	TargetType string        `yaml:"targetType,omitempty" json:"targetType,omitempty"`
	Locked     bool          `yaml:"locked" json:"locked"`
	SampleRate uint32        `yaml:"sampleRate,omitempty" json:"sampleRate,omitempty"`
	Keyframed  bool          `yaml:"keyframed,omitempty" json:"keyframed,omitempty"`
	Blocks     []BlockDoc    `yaml:"blocks,omitempty" json:"blocks,omitempty"`
	Keyframes  []KeyframeDoc `yaml:"keyframes,omitempty" json:"keyframes,omitempty"`
}

// BlockDoc is one §6.1 block entry. Payload carries a Constant or Action
// block's single value; Values carries a Samples block's dense array.
// Both are base64 of valuetype.Encode's wire form.
type BlockDoc struct {
	Kind       string   `yaml:"kind" json:"kind"`
	Start      int64    `yaml:"start" json:"start"`
	End        int64    `yaml:"end" json:"end"`
	SampleRate uint32   `yaml:"sampleRate,omitempty" json:"sampleRate,omitempty"`
	Payload    string   `yaml:"payload,omitempty" json:"payload,omitempty"`
	Values     []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// KeyframeDoc is one §6.1 keyframe entry.
type KeyframeDoc struct {
	Time   int64  `yaml:"time" json:"time"`
	Value  string `yaml:"value" json:"value"`
	Interp string `yaml:"interp" json:"interp"`
}

// FromTree renders every track in tree as a TrackDoc, in the same
// depth-first, parent-before-child order IterDepthFirst returns — the
// order ToTree requires to resolve ParentID references on one pass.
func FromTree(tree *track.Tree) []TrackDoc {
	nodes := tree.IterDepthFirst()
	docs := make([]TrackDoc, 0, len(nodes))
	for _, t := range nodes {
		docs = append(docs, trackToDoc(t))
	}
	return docs
}

func trackToDoc(t *track.Track) TrackDoc {
	doc := TrackDoc{
		ID:     t.ID,
		Kind:   trackKindName(t.Kind),
		Name:   t.Name,
		Locked: t.Locked,
	}
	if p := t.Parent(); p != nil {
		doc.ParentID = p.ID
	}
	switch t.Kind {
	case track.KindRef:
		doc.TargetType = t.RefTargetType
	case track.KindProp:
		doc.TargetType = t.PropValueKind.Tag()
		doc.SampleRate = t.SampleRate
		doc.Keyframed = t.Keyframed
		if t.Keyframed {
			doc.Keyframes = keyframesToDoc(t.Curve)
		} else if t.Blocks != nil {
			doc.Blocks = blocksToDoc(t.Blocks.All())
		}
	}
	return doc
}

func trackKindName(k track.Kind) string {
	if k == track.KindRef {
		return "Ref"
	}
	return "Prop"
}

func parseTrackKind(s string) (track.Kind, error) {
	switch s {
	case "Ref":
		return track.KindRef, nil
	case "Prop":
		return track.KindProp, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTrackKind, s)
	}
}

func blocksToDoc(blocks []block.Block) []BlockDoc {
	docs := make([]BlockDoc, len(blocks))
	for i, b := range blocks {
		d := BlockDoc{Start: int64(b.Range.Start), End: int64(b.Range.End)}
		switch b.Kind {
		case block.KindConstant:
			d.Kind = "Constant"
			d.Payload = encodeValue(b.Constant)
		case block.KindSamples:
			d.Kind = "Samples"
			d.SampleRate = b.SampleRate
			d.Values = make([]string, len(b.Samples))
			for j, v := range b.Samples {
				d.Values[j] = encodeValue(v)
			}
		case block.KindAction:
			d.Kind = "Action"
			d.Payload = encodeValue(b.Action)
		}
		docs[i] = d
	}
	return docs
}

func keyframesToDoc(keys []block.Keyframe) []KeyframeDoc {
	docs := make([]KeyframeDoc, len(keys))
	for i, k := range keys {
		docs[i] = KeyframeDoc{
			Time:   int64(k.Time),
			Value:  encodeValue(k.Value),
			Interp: k.Interpolation.String(),
		}
	}
	return docs
}

func encodeValue(v valuetype.Value) string {
	return base64.StdEncoding.EncodeToString(valuetype.Encode(nil, v))
}

func decodeValue(s string) (valuetype.Value, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return valuetype.Value{}, err
	}
	v, _, err := valuetype.Decode(raw)
	return v, err
}

// ToTree rebuilds a fresh *track.Tree from docs. docs must list each
// track's parent before the track itself — FromTree's output always
// satisfies this; a document built by hand must too.
func ToTree(docs []TrackDoc) (*track.Tree, error) {
	tree := track.NewTree()
	byID := make(map[string]*track.Track, len(docs))

	for _, d := range docs {
		t, err := docToTrack(d)
		if err != nil {
			return nil, err
		}

		var parent *track.Track
		if d.ParentID != "" {
			var ok bool
			parent, ok = byID[d.ParentID]
			if !ok {
				return nil, fmt.Errorf("%w: track %s wants parent %s", ErrMissingParent, d.ID, d.ParentID)
			}
		}
		if err := tree.AddChild(parent, t); err != nil {
			return nil, fmt.Errorf("track %s: %w", d.ID, err)
		}
		byID[d.ID] = t
	}
	return tree, nil
}

func docToTrack(d TrackDoc) (*track.Track, error) {
	kind, err := parseTrackKind(d.Kind)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w", d.ID, err)
	}
	t := &track.Track{
		ID:     d.ID,
		Name:   d.Name,
		Kind:   kind,
		Locked: d.Locked,
	}
	if kind == track.KindRef {
		t.RefTargetType = d.TargetType
		return t, nil
	}

	valKind, ok := valuetype.KindByTag(d.TargetType)
	if !ok {
		return nil, fmt.Errorf("track %s: %w: %q", d.ID, valuetype.ErrUnknownKind, d.TargetType)
	}
	t.PropValueKind = valKind
	t.SampleRate = d.SampleRate
	t.Keyframed = d.Keyframed

	if d.Keyframed {
		keys, err := docToKeyframes(d.Keyframes)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", d.ID, err)
		}
		t.Curve = keys
	} else if len(d.Blocks) > 0 {
		blocks, err := docToBlocks(d.Blocks)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", d.ID, err)
		}
		t.Blocks = block.NewSequence(blocks)
	}
	return t, nil
}

func docToBlocks(docs []BlockDoc) ([]block.Block, error) {
	out := make([]block.Block, len(docs))
	for i, d := range docs {
		r := timeval.NewRange(timeval.T(d.Start), timeval.T(d.End))
		b, err := docToBlock(d, r)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func docToBlock(d BlockDoc, r timeval.Range) (block.Block, error) {
	switch d.Kind {
	case "Constant":
		v, err := decodeValue(d.Payload)
		if err != nil {
			return block.Block{}, err
		}
		return block.NewConstant(r, v)
	case "Samples":
		values := make([]valuetype.Value, len(d.Values))
		for j, s := range d.Values {
			v, err := decodeValue(s)
			if err != nil {
				return block.Block{}, fmt.Errorf("sample %d: %w", j, err)
			}
			values[j] = v
		}
		return block.NewSamples(r, d.SampleRate, values)
	case "Action":
		v, err := decodeValue(d.Payload)
		if err != nil {
			return block.Block{}, err
		}
		return block.NewAction(r, v), nil
	default:
		return block.Block{}, fmt.Errorf("%w: %q", ErrUnknownBlockKind, d.Kind)
	}
}

// Checksum returns a content hash over docs' canonical encoding, so a
// host can tell whether a project has changed since its last autosave
// without diffing the whole tree — the same blake2b integrity-hash
// pattern pkg/edit's clipboard uses, applied to the persisted forest
// instead of a clipboard body.
func Checksum(docs []TrackDoc) (string, error) {
	data, err := yaml.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("could not marshal tracks for checksum: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func docToKeyframes(docs []KeyframeDoc) ([]block.Keyframe, error) {
	out := make([]block.Keyframe, len(docs))
	for i, d := range docs {
		v, err := decodeValue(d.Value)
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: %w", i, err)
		}
		interp, err := block.ParseInterpolation(d.Interp)
		if err != nil {
			return nil, fmt.Errorf("keyframe %d: %w", i, err)
		}
		out[i] = block.Keyframe{Time: timeval.T(d.Time), Value: v, Interpolation: interp}
	}
	return out, nil
}
