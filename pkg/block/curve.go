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
	"errors"
	"fmt"

	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// Interpolation selects how a keyframe segment compiles into a block.
type Interpolation uint8

const (
	Step Interpolation = iota
	Linear
	Cubic
)

// String names an Interpolation the way it appears in the §6.1/§6.2
// serialized forms ("Step"|"Linear"|"Cubic").
func (i Interpolation) String() string {
	switch i {
	case Step:
		return "Step"
	case Cubic:
		return "Cubic"
	default:
		return "Linear"
	}
}

// ErrUnknownInterpolation is returned by ParseInterpolation for any tag
// other than "Step", "Linear", or "Cubic".
var ErrUnknownInterpolation = errors.New("block: unknown interpolation tag")

// ParseInterpolation is the inverse of Interpolation.String.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "Step":
		return Step, nil
	case "Linear":
		return Linear, nil
	case "Cubic":
		return Cubic, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownInterpolation, s)
	}
}

// MarshalYAML renders i as its string tag, so a project.yaml's
// defaultInterpolation field reads "Step"/"Linear"/"Cubic" rather than a
// bare integer.
func (i Interpolation) MarshalYAML() (interface{}, error) {
	return i.String(), nil
}

// UnmarshalYAML is the inverse of MarshalYAML.
func (i *Interpolation) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseInterpolation(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Keyframe is one point of a keyframe curve.
type Keyframe struct {
	Time          timeval.T
	Value         valuetype.Value
	Interpolation Interpolation
}

// ErrUnsortedKeyframes is returned when Compile is given keyframes out of
// time order.
var ErrUnsortedKeyframes = errors.New("block: keyframes must be strictly increasing in time")

// collapseEpsilon is not consulted by compileSegment, which collapses
// equal-endpoint segments using AlmostEqual's per-kind default tolerance.
const collapseEpsilon = 1e-4

// Compile turns an ordered keyframe curve into a block sequence at the
// given sample rate, one block per consecutive keyframe pair. Every segment
// is compiled before Compile returns; no block is produced on demand. Step
// segments become Constant blocks holding the left keyframe's value;
// Linear segments become Samples blocks generated with Lerp; Cubic
// segments become Samples blocks generated with Catmull-Rom using the
// curve's real neighbors, or a mirror of the far endpoint at a curve
// boundary. A segment whose endpoints are equal under AlmostEqual always
// collapses to a Constant regardless of its declared interpolation.
func Compile(keys []Keyframe, rate uint32) (*Sequence, error) {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time <= keys[i-1].Time {
			return nil, ErrUnsortedKeyframes
		}
	}
	var out []Block
	for i := 0; i+1 < len(keys); i++ {
		b, err := compileSegment(keys, i, rate)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return NewSequence(out), nil
}

func compileSegment(keys []Keyframe, i int, rate uint32) (Block, error) {
	k0, k1 := keys[i], keys[i+1]
	r := timeval.NewRange(k0.Time, k1.Time)

	if valuetype.AlmostEqual(k0.Value, k1.Value, 0) {
		return NewConstant(r, k0.Value)
	}

	switch k0.Interpolation {
	case Step:
		return NewConstant(r, k0.Value)
	case Linear:
		return compileLinear(r, rate, k0.Value, k1.Value)
	case Cubic:
		prev := neighborPrev(keys, i)
		next := neighborNext(keys, i)
		return compileCubic(r, rate, prev, k0.Value, k1.Value, next)
	default:
		return NewConstant(r, k0.Value)
	}
}

func neighborPrev(keys []Keyframe, i int) valuetype.Value {
	if i-1 >= 0 {
		return keys[i-1].Value
	}
	// No left neighbor: mirror the right endpoint of this segment about
	// its left endpoint.
	return valuetype.MirrorPrev(keys[i].Value, keys[i+1].Value)
}

func neighborNext(keys []Keyframe, i int) valuetype.Value {
	if i+2 < len(keys) {
		return keys[i+2].Value
	}
	// No right neighbor: mirror the left endpoint of this segment about
	// its right endpoint.
	return valuetype.MirrorNext(keys[i+1].Value, keys[i].Value)
}

// compileLinear samples one value per period across [r.Start, r.End); the
// sample at t==1 (exactly b) is owned by whatever segment starts at
// r.End, not this block, matching the half-open range invariant.
func compileLinear(r timeval.Range, rate uint32, a, b valuetype.Value) (Block, error) {
	n, err := timeval.FrameCount(r, rate)
	if err != nil {
		return Block{}, err
	}
	values := make([]valuetype.Value, n)
	for i := int64(0); i < n; i++ {
		t := float64(i) / float64(n)
		values[i] = valuetype.Lerp(a, b, t)
	}
	return NewSamples(r, rate, values)
}

func compileCubic(r timeval.Range, rate uint32, v0, v1, v2, v3 valuetype.Value) (Block, error) {
	n, err := timeval.FrameCount(r, rate)
	if err != nil {
		return Block{}, err
	}
	values := make([]valuetype.Value, n)
	for i := int64(0); i < n; i++ {
		t := float64(i) / float64(n)
		values[i] = valuetype.Cubic(v0, v1, v2, v3, t)
	}
	return NewSamples(r, rate, values)
}
