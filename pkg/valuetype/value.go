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

// Package valuetype holds the registry of interpolable track value types:
// equality (exact and approximate), linear and cubic interpolation, and a
// length-prefixed binary codec. Every track value flows through here, so
// dispatch is on the sum-type discriminant (Kind) rather than host dynamic
// dispatch.
package valuetype

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the sum-type discriminant for Value. It is also the wire tag
// written by Encode, so its numeric values must stay stable.
type Kind uint8

// Registered kinds.
const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindVec2
	KindVec3
	KindVec4
	KindQuat
	KindRgba
	KindTransform
	KindBoneRef
	KindAction
)

// String names a Kind the way the registry's Tag does, for logging.
func (k Kind) String() string {
	if t, ok := tagByKind[k]; ok {
		return t
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ErrDecodeError is returned for any malformed or truncated payload.
var ErrDecodeError = errors.New("decode error")

// ErrUnknownKind is returned when a wire tag doesn't match a registered Kind.
var ErrUnknownKind = errors.New("unknown value kind")

// Vec2, Vec3, Vec4 are plain float components, lerped componentwise.
type Vec2 struct{ X, Y float64 }
type Vec3 struct{ X, Y, Z float64 }
type Vec4 struct{ X, Y, Z, W float64 }

// Quat is a unit quaternion, stored and lerped (via slerp) as a unit.
type Quat struct{ X, Y, Z, W float64 }

// Rgba is a four-channel color, components in [0,1], lerped componentwise.
type Rgba struct{ R, G, B, A float64 }

// Transform is a position + rotation + scale, lerped componentwise (each
// sub-field with its own type's lerp).
type Transform struct {
	Position Vec3
	Rotation Quat
	Scale    Vec3
}

// BoneRef is an opaque handle to a bone on a skinned-model's BoneAccessor.
// It is not interpolable: Lerp always returns a (the earlier value).
type BoneRef struct {
	Path string // dot-separated bone path under the owning BoneAccessor.
}

// Action is an atomic opaque event payload. It is not interpolable.
type Action struct {
	Payload []byte
}

// Value is the sum type every track value is boxed in. Exactly one field
// is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Bool      bool
	Int       int64
	Float     float64
	Vec2      Vec2
	Vec3      Vec3
	Vec4      Vec4
	Quat      Quat
	Rgba      Rgba
	Transform Transform
	BoneRef   BoneRef
	Action    Action
}

// Default epsilons used by AlmostEqual when the caller doesn't supply one.
const (
	epsFloat     = 1e-6
	epsComponent = 1e-6
	epsQuat      = 1e-4
)

// Bool builds a bool Value.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// Int builds an int Value.
func Int(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float builds a float Value.
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// NewVec2 builds a Vec2 Value.
func NewVec2(v Vec2) Value { return Value{Kind: KindVec2, Vec2: v} }

// NewVec3 builds a Vec3 Value.
func NewVec3(v Vec3) Value { return Value{Kind: KindVec3, Vec3: v} }

// NewVec4 builds a Vec4 Value.
func NewVec4(v Vec4) Value { return Value{Kind: KindVec4, Vec4: v} }

// NewQuat builds a Quat Value.
func NewQuat(v Quat) Value { return Value{Kind: KindQuat, Quat: v} }

// NewRgba builds a Rgba Value.
func NewRgba(v Rgba) Value { return Value{Kind: KindRgba, Rgba: v} }

// NewTransform builds a Transform Value.
func NewTransform(v Transform) Value { return Value{Kind: KindTransform, Transform: v} }

// NewBoneRef builds a BoneRef Value.
func NewBoneRef(v BoneRef) Value { return Value{Kind: KindBoneRef, BoneRef: v} }

// NewAction builds an Action Value.
func NewAction(v Action) Value { return Value{Kind: KindAction, Action: v} }

// Equal is bit-exact equality, dispatched on Kind.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindVec2:
		return a.Vec2 == b.Vec2
	case KindVec3:
		return a.Vec3 == b.Vec3
	case KindVec4:
		return a.Vec4 == b.Vec4
	case KindQuat:
		return a.Quat == b.Quat
	case KindRgba:
		return a.Rgba == b.Rgba
	case KindTransform:
		return a.Transform == b.Transform
	case KindBoneRef:
		return a.BoneRef == b.BoneRef
	case KindAction:
		return bytesEqual(a.Action.Payload, b.Action.Payload)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
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

// AlmostEqual compares with the type's default epsilon, or eps when eps>0.
func AlmostEqual(a, b Value, eps float64) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool, KindBoneRef, KindAction:
		return Equal(a, b)
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return almostEqualFloat(a.Float, b.Float, pick(eps, epsFloat))
	case KindVec2:
		e := pick(eps, epsComponent)
		return almostEqualFloat(a.Vec2.X, b.Vec2.X, e) && almostEqualFloat(a.Vec2.Y, b.Vec2.Y, e)
	case KindVec3:
		e := pick(eps, epsComponent)
		return almostEqualFloat(a.Vec3.X, b.Vec3.X, e) &&
			almostEqualFloat(a.Vec3.Y, b.Vec3.Y, e) &&
			almostEqualFloat(a.Vec3.Z, b.Vec3.Z, e)
	case KindVec4:
		e := pick(eps, epsComponent)
		return almostEqualFloat(a.Vec4.X, b.Vec4.X, e) &&
			almostEqualFloat(a.Vec4.Y, b.Vec4.Y, e) &&
			almostEqualFloat(a.Vec4.Z, b.Vec4.Z, e) &&
			almostEqualFloat(a.Vec4.W, b.Vec4.W, e)
	case KindQuat:
		return quatAlmostEqual(a.Quat, b.Quat, pick(eps, epsQuat))
	case KindRgba:
		e := pick(eps, epsComponent)
		return almostEqualFloat(a.Rgba.R, b.Rgba.R, e) &&
			almostEqualFloat(a.Rgba.G, b.Rgba.G, e) &&
			almostEqualFloat(a.Rgba.B, b.Rgba.B, e) &&
			almostEqualFloat(a.Rgba.A, b.Rgba.A, e)
	case KindTransform:
		e := pick(eps, epsComponent)
		return almostEqualVec3(a.Transform.Position, b.Transform.Position, e) &&
			quatAlmostEqual(a.Transform.Rotation, b.Transform.Rotation, pick(eps, epsQuat)) &&
			almostEqualVec3(a.Transform.Scale, b.Transform.Scale, e)
	default:
		return false
	}
}

func pick(eps, def float64) float64 {
	if eps > 0 {
		return eps
	}
	return def
}

func almostEqualFloat(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func almostEqualVec3(a, b Vec3, eps float64) bool {
	return almostEqualFloat(a.X, b.X, eps) &&
		almostEqualFloat(a.Y, b.Y, eps) &&
		almostEqualFloat(a.Z, b.Z, eps)
}

func quatAlmostEqual(a, b Quat, eps float64) bool {
	// Shortest-arc: q and -q represent the same rotation.
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if dot < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
	}
	return almostEqualFloat(a.X, b.X, eps) &&
		almostEqualFloat(a.Y, b.Y, eps) &&
		almostEqualFloat(a.Z, b.Z, eps) &&
		almostEqualFloat(a.W, b.W, eps)
}

// Lerp interpolates a to b at t in [0,1]. Quat uses shortest-arc slerp.
// BoneRef and Action are not interpolable and return a unchanged.
func Lerp(a, b Value, t float64) Value {
	if a.Kind != b.Kind {
		return a
	}
	switch a.Kind {
	case KindBool:
		if t >= 1 {
			return b
		}
		return a
	case KindInt:
		return Int(int64(math.Round(lerpFloat(float64(a.Int), float64(b.Int), t))))
	case KindFloat:
		return Float(lerpFloat(a.Float, b.Float, t))
	case KindVec2:
		return NewVec2(Vec2{
			X: lerpFloat(a.Vec2.X, b.Vec2.X, t),
			Y: lerpFloat(a.Vec2.Y, b.Vec2.Y, t),
		})
	case KindVec3:
		return NewVec3(lerpVec3(a.Vec3, b.Vec3, t))
	case KindVec4:
		return NewVec4(Vec4{
			X: lerpFloat(a.Vec4.X, b.Vec4.X, t),
			Y: lerpFloat(a.Vec4.Y, b.Vec4.Y, t),
			Z: lerpFloat(a.Vec4.Z, b.Vec4.Z, t),
			W: lerpFloat(a.Vec4.W, b.Vec4.W, t),
		})
	case KindQuat:
		return NewQuat(slerp(a.Quat, b.Quat, t))
	case KindRgba:
		return NewRgba(Rgba{
			R: lerpFloat(a.Rgba.R, b.Rgba.R, t),
			G: lerpFloat(a.Rgba.G, b.Rgba.G, t),
			B: lerpFloat(a.Rgba.B, b.Rgba.B, t),
			A: lerpFloat(a.Rgba.A, b.Rgba.A, t),
		})
	case KindTransform:
		return NewTransform(Transform{
			Position: lerpVec3(a.Transform.Position, b.Transform.Position, t),
			Rotation: slerp(a.Transform.Rotation, b.Transform.Rotation, t),
			Scale:    lerpVec3(a.Transform.Scale, b.Transform.Scale, t),
		})
	default:
		return a
	}
}

func lerpFloat(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: lerpFloat(a.X, b.X, t),
		Y: lerpFloat(a.Y, b.Y, t),
		Z: lerpFloat(a.Z, b.Z, t),
	}
}

// slerp is shortest-arc spherical linear interpolation. Falls back to
// normalized lerp when the quaternions are nearly parallel, to avoid
// dividing by a near-zero sine.
func slerp(a, b Quat, t float64) Quat {
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if dot < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
		dot = -dot
	}
	const dotThreshold = 0.9995
	if dot > dotThreshold {
		return normalizeQuat(Quat{
			X: lerpFloat(a.X, b.X, t),
			Y: lerpFloat(a.Y, b.Y, t),
			Z: lerpFloat(a.Z, b.Z, t),
			W: lerpFloat(a.W, b.W, t),
		})
	}

	theta0 := math.Acos(clamp(dot, -1, 1))
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: a.X*s0 + b.X*s1,
		Y: a.Y*s0 + b.Y*s1,
		Z: a.Z*s0 + b.Z*s1,
		W: a.W*s0 + b.W*s1,
	}
}

func normalizeQuat(q Quat) Quat {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return Quat{W: 1}
	}
	return Quat{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Cubic is Catmull-Rom interpolation over the v1->v2 segment using tangents
// derived from the neighboring v0 and v3 control points, used by keyframe
// curves in Cubic interpolation mode. t is in [0,1] across v1->v2.
func Cubic(v0, v1, v2, v3 Value, t float64) Value {
	if v1.Kind != v2.Kind {
		return v1
	}
	switch v1.Kind {
	case KindFloat:
		return Float(catmullRom(v0.Float, v1.Float, v2.Float, v3.Float, t))
	case KindVec2:
		return NewVec2(Vec2{
			X: catmullRom(v0.Vec2.X, v1.Vec2.X, v2.Vec2.X, v3.Vec2.X, t),
			Y: catmullRom(v0.Vec2.Y, v1.Vec2.Y, v2.Vec2.Y, v3.Vec2.Y, t),
		})
	case KindVec3:
		return NewVec3(Vec3{
			X: catmullRom(v0.Vec3.X, v1.Vec3.X, v2.Vec3.X, v3.Vec3.X, t),
			Y: catmullRom(v0.Vec3.Y, v1.Vec3.Y, v2.Vec3.Y, v3.Vec3.Y, t),
			Z: catmullRom(v0.Vec3.Z, v1.Vec3.Z, v2.Vec3.Z, v3.Vec3.Z, t),
		})
	case KindVec4:
		return NewVec4(Vec4{
			X: catmullRom(v0.Vec4.X, v1.Vec4.X, v2.Vec4.X, v3.Vec4.X, t),
			Y: catmullRom(v0.Vec4.Y, v1.Vec4.Y, v2.Vec4.Y, v3.Vec4.Y, t),
			Z: catmullRom(v0.Vec4.Z, v1.Vec4.Z, v2.Vec4.Z, v3.Vec4.Z, t),
			W: catmullRom(v0.Vec4.W, v1.Vec4.W, v2.Vec4.W, v3.Vec4.W, t),
		})
	case KindQuat:
		// Quaternions don't have a well-defined Catmull-Rom tangent in the
		// same sense as scalars; fall back to slerp across the v1→v2
		// segment, ignoring the outer neighbours v0 and v3.
		return NewQuat(slerp(v1.Quat, v2.Quat, t))
	case KindRgba:
		return NewRgba(Rgba{
			R: catmullRom(v0.Rgba.R, v1.Rgba.R, v2.Rgba.R, v3.Rgba.R, t),
			G: catmullRom(v0.Rgba.G, v1.Rgba.G, v2.Rgba.G, v3.Rgba.G, t),
			B: catmullRom(v0.Rgba.B, v1.Rgba.B, v2.Rgba.B, v3.Rgba.B, t),
			A: catmullRom(v0.Rgba.A, v1.Rgba.A, v2.Rgba.A, v3.Rgba.A, t),
		})
	case KindTransform:
		return NewTransform(Transform{
			Position: Cubic(
				NewVec3(v0.Transform.Position), NewVec3(v1.Transform.Position),
				NewVec3(v2.Transform.Position), NewVec3(v3.Transform.Position), t).Vec3,
			Rotation: slerp(v1.Transform.Rotation, v2.Transform.Rotation, t),
			Scale: Cubic(
				NewVec3(v0.Transform.Scale), NewVec3(v1.Transform.Scale),
				NewVec3(v2.Transform.Scale), NewVec3(v3.Transform.Scale), t).Vec3,
		})
	default:
		return v1
	}
}

// catmullRom evaluates the uniform Catmull-Rom spline between p1 and p2
// using p0 and p3 as the tangent-defining neighbors.
func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// MirrorPrev returns the control point to use in place of a missing v(-1)
// neighbor at a curve's start boundary: reflect v1 through v0, the way a
// Catmull-Rom spline is conventionally extended at an open end.
func MirrorPrev(v0, v1 Value) Value {
	return mirror(v1, v0)
}

// MirrorNext returns the control point to use in place of a missing v(n+1)
// neighbor at a curve's end boundary.
func MirrorNext(vLast, vPrev Value) Value {
	return mirror(vPrev, vLast)
}

// mirror reflects anchor through pivot: pivot + (pivot - anchor).
func mirror(anchor, pivot Value) Value {
	if anchor.Kind != pivot.Kind {
		return pivot
	}
	switch anchor.Kind {
	case KindFloat:
		return Float(2*pivot.Float - anchor.Float)
	case KindVec2:
		return NewVec2(Vec2{2*pivot.Vec2.X - anchor.Vec2.X, 2*pivot.Vec2.Y - anchor.Vec2.Y})
	case KindVec3:
		return NewVec3(Vec3{
			2*pivot.Vec3.X - anchor.Vec3.X,
			2*pivot.Vec3.Y - anchor.Vec3.Y,
			2*pivot.Vec3.Z - anchor.Vec3.Z,
		})
	case KindVec4:
		return NewVec4(Vec4{
			2*pivot.Vec4.X - anchor.Vec4.X,
			2*pivot.Vec4.Y - anchor.Vec4.Y,
			2*pivot.Vec4.Z - anchor.Vec4.Z,
			2*pivot.Vec4.W - anchor.Vec4.W,
		})
	case KindRgba:
		return NewRgba(Rgba{
			2*pivot.Rgba.R - anchor.Rgba.R,
			2*pivot.Rgba.G - anchor.Rgba.G,
			2*pivot.Rgba.B - anchor.Rgba.B,
			2*pivot.Rgba.A - anchor.Rgba.A,
		})
	default:
		return pivot
	}
}

// Default returns the zero value for kind, used when sampling a track
// outside any block and with no prior block to fall back on.
func Default(kind Kind) Value {
	switch kind {
	case KindQuat:
		return NewQuat(Quat{W: 1})
	case KindTransform:
		return NewTransform(Transform{Scale: Vec3{X: 1, Y: 1, Z: 1}, Rotation: Quat{W: 1}})
	default:
		return Value{Kind: kind}
	}
}

var tagByKind = map[Kind]string{
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindVec2:      "vec2",
	KindVec3:      "vec3",
	KindVec4:      "vec4",
	KindQuat:      "quat",
	KindRgba:      "rgba",
	KindTransform: "transform",
	KindBoneRef:   "boneRef",
	KindAction:    "action",
}

var kindByTag = func() map[string]Kind {
	m := make(map[string]Kind, len(tagByKind))
	for k, v := range tagByKind {
		m[v] = k
	}
	return m
}()

// KindByTag looks up a Kind by its registered string tag, the way
// customformat's box-type table resolves a 4-byte tag without panicking on
// an unknown one.
func KindByTag(tag string) (Kind, bool) {
	k, ok := kindByTag[tag]
	return k, ok
}

// Tag returns k's registered string tag.
func (k Kind) Tag() string {
	return k.String()
}
