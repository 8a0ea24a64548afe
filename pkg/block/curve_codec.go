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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/icza/bitio"

	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// EncodeKeyframes serializes an ordered keyframe curve for project
// persistence. Each keyframe's Interpolation (2 bits) and value Kind
// (6 bits) are bit-packed into a single header byte the same way
// mpeg4audioconfig packs its type and sample-rate-index fields into a
// sub-byte bitstream; the rest of the record (time, then the value's
// normal length-prefixed encoding) is written byte-aligned right after,
// since 2+6 bits already lands back on a byte boundary.
func EncodeKeyframes(keys []Keyframe) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, k := range keys {
		if err := w.WriteBits(uint64(k.Interpolation), 2); err != nil {
			return nil, fmt.Errorf("encode keyframe header: %w", err)
		}
		if err := w.WriteBits(uint64(k.Value.Kind), 6); err != nil {
			return nil, fmt.Errorf("encode keyframe header: %w", err)
		}

		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(k.Time))
		if _, err := w.Write(tmp[:]); err != nil {
			return nil, fmt.Errorf("encode keyframe time: %w", err)
		}

		body := valuetype.Encode(nil, k.Value)
		var lenTmp [4]byte
		binary.BigEndian.PutUint32(lenTmp[:], uint32(len(body)))
		if _, err := w.Write(lenTmp[:]); err != nil {
			return nil, fmt.Errorf("encode keyframe value length: %w", err)
		}
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("encode keyframe value: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flush keyframe stream: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeKeyframes parses the format EncodeKeyframes produces.
func DecodeKeyframes(data []byte) ([]Keyframe, error) {
	r := bitio.NewReader(bytes.NewReader(data))
	var out []Keyframe

	for {
		interp, err := r.ReadBits(2)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode keyframe header: %w", err)
		}
		kindBits, err := r.ReadBits(6)
		if err != nil {
			return nil, fmt.Errorf("decode keyframe header: %w", err)
		}
		_ = kindBits // the Kind is also carried in the value's own tag byte.

		var tmp [8]byte
		if _, err := io.ReadFull(r, tmp[:]); err != nil {
			return nil, fmt.Errorf("decode keyframe time: %w", err)
		}
		t := timeval.T(binary.BigEndian.Uint64(tmp[:]))

		var lenTmp [4]byte
		if _, err := io.ReadFull(r, lenTmp[:]); err != nil {
			return nil, fmt.Errorf("decode keyframe value length: %w", err)
		}
		bodyLen := binary.BigEndian.Uint32(lenTmp[:])

		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("decode keyframe value: %w", err)
		}

		v, _, err := valuetype.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("decode keyframe value: %w", err)
		}

		out = append(out, Keyframe{Time: t, Value: v, Interpolation: Interpolation(interp)})
	}
	return out, nil
}
