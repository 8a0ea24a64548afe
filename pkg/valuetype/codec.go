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

package valuetype

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode appends v's wire representation to buf and returns the result.
// The layout is a one-byte Kind tag followed by the type's fixed fields,
// big-endian, mirroring customformat.Header's fixed-field marshaling.
func Encode(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindBool:
		var b byte
		if v.Bool {
			b = 1
		}
		buf = append(buf, b)
	case KindInt:
		buf = appendInt64(buf, v.Int)
	case KindFloat:
		buf = appendFloat64(buf, v.Float)
	case KindVec2:
		buf = appendFloat64(buf, v.Vec2.X)
		buf = appendFloat64(buf, v.Vec2.Y)
	case KindVec3:
		buf = appendFloat64(buf, v.Vec3.X)
		buf = appendFloat64(buf, v.Vec3.Y)
		buf = appendFloat64(buf, v.Vec3.Z)
	case KindVec4:
		buf = appendFloat64(buf, v.Vec4.X)
		buf = appendFloat64(buf, v.Vec4.Y)
		buf = appendFloat64(buf, v.Vec4.Z)
		buf = appendFloat64(buf, v.Vec4.W)
	case KindQuat:
		buf = appendFloat64(buf, v.Quat.X)
		buf = appendFloat64(buf, v.Quat.Y)
		buf = appendFloat64(buf, v.Quat.Z)
		buf = appendFloat64(buf, v.Quat.W)
	case KindRgba:
		buf = appendFloat64(buf, v.Rgba.R)
		buf = appendFloat64(buf, v.Rgba.G)
		buf = appendFloat64(buf, v.Rgba.B)
		buf = appendFloat64(buf, v.Rgba.A)
	case KindTransform:
		buf = Encode(buf, NewVec3(v.Transform.Position))
		buf = Encode(buf, NewQuat(v.Transform.Rotation))
		buf = Encode(buf, NewVec3(v.Transform.Scale))
	case KindBoneRef:
		buf = appendArray(buf, []byte(v.BoneRef.Path))
	case KindAction:
		buf = appendArray(buf, v.Action.Payload)
	}
	return buf
}

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func appendArray(buf []byte, value []byte) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(value)))
	buf = append(buf, tmp[:]...)
	return append(buf, value...)
}

// Decode reads one Value from the front of buf and returns it along with
// the number of bytes consumed.
func Decode(buf []byte) (Value, int, error) {
	if len(buf) < 1 {
		return Value{}, 0, fmt.Errorf("%w: empty buffer", ErrDecodeError)
	}
	kind := Kind(buf[0])
	pos := 1

	read := func(n int) ([]byte, error) {
		if pos+n > len(buf) {
			return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrDecodeError, n, len(buf)-pos)
		}
		b := buf[pos : pos+n]
		pos += n
		return b, nil
	}
	readFloat := func() (float64, error) {
		b, err := read(8)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	}

	var v Value
	v.Kind = kind
	switch kind {
	case KindBool:
		b, err := read(1)
		if err != nil {
			return Value{}, 0, err
		}
		v.Bool = b[0] != 0
	case KindInt:
		b, err := read(8)
		if err != nil {
			return Value{}, 0, err
		}
		v.Int = int64(binary.BigEndian.Uint64(b))
	case KindFloat:
		f, err := readFloat()
		if err != nil {
			return Value{}, 0, err
		}
		v.Float = f
	case KindVec2:
		x, err := readFloat()
		if err != nil {
			return Value{}, 0, err
		}
		y, err := readFloat()
		if err != nil {
			return Value{}, 0, err
		}
		v.Vec2 = Vec2{X: x, Y: y}
	case KindVec3:
		var c [3]float64
		for i := range c {
			f, err := readFloat()
			if err != nil {
				return Value{}, 0, err
			}
			c[i] = f
		}
		v.Vec3 = Vec3{X: c[0], Y: c[1], Z: c[2]}
	case KindVec4:
		var c [4]float64
		for i := range c {
			f, err := readFloat()
			if err != nil {
				return Value{}, 0, err
			}
			c[i] = f
		}
		v.Vec4 = Vec4{X: c[0], Y: c[1], Z: c[2], W: c[3]}
	case KindQuat:
		var c [4]float64
		for i := range c {
			f, err := readFloat()
			if err != nil {
				return Value{}, 0, err
			}
			c[i] = f
		}
		v.Quat = Quat{X: c[0], Y: c[1], Z: c[2], W: c[3]}
	case KindRgba:
		var c [4]float64
		for i := range c {
			f, err := readFloat()
			if err != nil {
				return Value{}, 0, err
			}
			c[i] = f
		}
		v.Rgba = Rgba{R: c[0], G: c[1], B: c[2], A: c[3]}
	case KindTransform:
		newPos, err := decodeTransform(buf, pos, &v)
		if err != nil {
			return Value{}, 0, err
		}
		pos = newPos
	case KindBoneRef:
		n, err := readU16(buf, &pos)
		if err != nil {
			return Value{}, 0, err
		}
		b, err := read(n)
		if err != nil {
			return Value{}, 0, err
		}
		v.BoneRef = BoneRef{Path: string(b)}
	case KindAction:
		n, err := readU16(buf, &pos)
		if err != nil {
			return Value{}, 0, err
		}
		b, err := read(n)
		if err != nil {
			return Value{}, 0, err
		}
		payload := make([]byte, len(b))
		copy(payload, b)
		v.Action = Action{Payload: payload}
	default:
		return Value{}, 0, fmt.Errorf("%w: tag %d", ErrUnknownKind, kind)
	}
	return v, pos, nil
}

func readU16(buf []byte, pos *int) (int, error) {
	if *pos+2 > len(buf) {
		return 0, fmt.Errorf("%w: truncated length prefix", ErrDecodeError)
	}
	n := int(binary.BigEndian.Uint16(buf[*pos : *pos+2]))
	*pos += 2
	return n, nil
}

// decodeTransform decodes the three sub-values of a Transform in order.
func decodeTransform(buf []byte, pos int, v *Value) (int, error) {
	position, n, err := Decode(buf[pos:])
	if err != nil {
		return 0, fmt.Errorf("transform position: %w", err)
	}
	pos += n

	rotation, n, err := Decode(buf[pos:])
	if err != nil {
		return 0, fmt.Errorf("transform rotation: %w", err)
	}
	pos += n

	scale, n, err := Decode(buf[pos:])
	if err != nil {
		return 0, fmt.Errorf("transform scale: %w", err)
	}
	pos += n

	v.Transform = Transform{
		Position: position.Vec3,
		Rotation: rotation.Quat,
		Scale:    scale.Vec3,
	}
	return pos, nil
}

// EncodeStream writes v to w using the same layout as Encode, for callers
// streaming a project file rather than building it in memory.
func EncodeStream(w io.Writer, v Value) error {
	buf := Encode(nil, v)
	_, err := w.Write(buf)
	return err
}

// DecodeStream reads exactly one Value from r. maxSize is the number of bytes
// Decode would need at most for any fixed-size kind (callers decoding a
// stream of known-kind values can pass a tight buffer); for variable-length
// kinds (BoneRef, Action) pass an upper bound.
func DecodeStream(r io.Reader, maxSize int) (Value, error) {
	buf := make([]byte, maxSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return Value{}, err
	}
	v, _, derr := Decode(buf[:n])
	if derr != nil {
		return Value{}, derr
	}
	return v, nil
}
