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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// ErrTypeMismatch is returned by Paste when a group's TargetType isn't
// assignable to its destination track's declared property value kind.
var ErrTypeMismatch = errors.New("edit: clipboard group type is not assignable to destination track")

// ErrCorruptClipboard is returned by DecodeClipboard when the embedded
// integrity hash doesn't match the document body.
var ErrCorruptClipboard = errors.New("edit: clipboard integrity hash mismatch")

// keyframeDTO is the wire shape of one clipboard keyframe: the value is
// carried through valuetype's binary codec, base64'd into the JSON
// document so the clipboard stays a single UTF-8 text blob.
type keyframeDTO struct {
	Time   int64  `json:"time"`
	Value  string `json:"value"`
	Interp string `json:"interp"`
}

// Group is one track's copied keyframe selection.
type Group struct {
	TrackID    string           `json:"guid"`
	TargetType string           `json:"targetType"`
	Keyframes  []block.Keyframe `json:"-"`
}

// MarshalJSON encodes g in the §6.2 wire shape.
func (g Group) MarshalJSON() ([]byte, error) {
	dtos := make([]keyframeDTO, len(g.Keyframes))
	for i, k := range g.Keyframes {
		dtos[i] = keyframeDTO{
			Time:   int64(k.Time),
			Value:  base64.StdEncoding.EncodeToString(valuetype.Encode(nil, k.Value)),
			Interp: k.Interpolation.String(),
		}
	}
	return json.Marshal(struct {
		TrackID    string        `json:"guid"`
		TargetType string        `json:"targetType"`
		Keyframes  []keyframeDTO `json:"keyframes"`
	}{g.TrackID, g.TargetType, dtos})
}

// UnmarshalJSON decodes g from the §6.2 wire shape.
func (g *Group) UnmarshalJSON(data []byte) error {
	var wire struct {
		TrackID    string        `json:"guid"`
		TargetType string        `json:"targetType"`
		Keyframes  []keyframeDTO `json:"keyframes"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.TrackID = wire.TrackID
	g.TargetType = wire.TargetType
	g.Keyframes = make([]block.Keyframe, len(wire.Keyframes))
	for i, d := range wire.Keyframes {
		raw, err := base64.StdEncoding.DecodeString(d.Value)
		if err != nil {
			return fmt.Errorf("clipboard keyframe %d: %w", i, err)
		}
		v, _, err := valuetype.Decode(raw)
		if err != nil {
			return fmt.Errorf("clipboard keyframe %d: %w", i, err)
		}
		interp, err := block.ParseInterpolation(d.Interp)
		if err != nil {
			return fmt.Errorf("clipboard keyframe %d: %w", i, err)
		}
		g.Keyframes[i] = block.Keyframe{
			Time:          timeval.T(d.Time),
			Value:         v,
			Interpolation: interp,
		}
	}
	return nil
}

// Clipboard is the in-memory form of a copied selection: one anchorTime
// plus one Group per copied track.
type Clipboard struct {
	Time   timeval.T `json:"time"`
	Groups []Group   `json:"keyframes"`
}

// EncodeClipboard serializes c to the §6.2 document, with a blake2b
// content hash over the body appended so a hand-edited or truncated
// clipboard file is caught before it reaches Paste.
func EncodeClipboard(c Clipboard) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("could not marshal clipboard: %w", err)
	}
	sum := blake2b.Sum256(body)

	return json.Marshal(struct {
		Body string `json:"body"`
		Hash string `json:"hash"`
	}{
		Body: base64.StdEncoding.EncodeToString(body),
		Hash: base64.StdEncoding.EncodeToString(sum[:]),
	})
}

// DecodeClipboard verifies the integrity hash and unmarshals the body.
func DecodeClipboard(data []byte) (Clipboard, error) {
	var envelope struct {
		Body string `json:"body"`
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Clipboard{}, fmt.Errorf("could not unmarshal clipboard envelope: %w", err)
	}
	body, err := base64.StdEncoding.DecodeString(envelope.Body)
	if err != nil {
		return Clipboard{}, fmt.Errorf("could not decode clipboard body: %w", err)
	}
	wantHash, err := base64.StdEncoding.DecodeString(envelope.Hash)
	if err != nil {
		return Clipboard{}, fmt.Errorf("could not decode clipboard hash: %w", err)
	}
	gotHash := blake2b.Sum256(body)
	if !hashEqual(gotHash[:], wantHash) {
		return Clipboard{}, ErrCorruptClipboard
	}

	var c Clipboard
	if err := json.Unmarshal(body, &c); err != nil {
		return Clipboard{}, fmt.Errorf("could not unmarshal clipboard: %w", err)
	}
	return c, nil
}

func hashEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
