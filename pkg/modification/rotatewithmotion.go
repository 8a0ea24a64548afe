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
	"math"

	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// RotateWithMotion derives a LocalRotation track from an object's
// LocalPosition samples: at every frame where the object has moved since
// the previous frame, the rotation faces the direction of travel
// (yaw-only, about the world Y axis). Frames before the first detected
// motion are back-filled from the first computed rotation; an object
// that never moves across the selection is skipped entirely.
type RotateWithMotion struct {
	cancelled bool
}

// NewRotateWithMotion returns a ready-to-use RotateWithMotion modification.
func NewRotateWithMotion() *RotateWithMotion { return &RotateWithMotion{} }

func init() {
	RegisterDefault(NewRotateWithMotion())
}

// Name implements Modification.
func (m *RotateWithMotion) Name() string { return "Rotate With Motion" }

// CanStart requires every object to carry a LocalPosition child track.
func (m *RotateWithMotion) CanStart(objects []Object, _ timeval.Range) bool {
	if len(objects) == 0 {
		return false
	}
	for _, o := range objects {
		if _, ok := o.Children["LocalPosition"]; !ok {
			return false
		}
	}
	return true
}

// Cancel marks the in-flight Start call to discard its output early.
func (m *RotateWithMotion) Cancel() { m.cancelled = true }

// Start implements Modification.
func (m *RotateWithMotion) Start(objects []Object, selection timeval.Range, sampleRate uint32) ([]CompiledTrack, error) {
	m.cancelled = false

	var out []CompiledTrack
	for _, o := range objects {
		if m.cancelled {
			return nil, ErrCancelled
		}
		posTrack, ok := o.Children["LocalPosition"]
		if !ok {
			continue
		}
		positions, err := sampleTrack(posTrack, selection, sampleRate)
		if err != nil {
			return nil, err
		}
		if len(positions) == 0 {
			continue
		}

		rotations, moved := rotationsFromMotion(positions)
		if !moved {
			continue
		}

		seq, err := buildSequence(selection, sampleRate, rotations)
		if err != nil {
			return nil, err
		}
		out = append(out, CompiledTrack{Ref: o.Ref, Name: "LocalRotation", Blocks: seq})
	}
	return out, nil
}

// rotationsFromMotion computes one yaw-only rotation per frame, facing
// the direction travelled since the previous sample. moved reports
// whether any motion was detected at all; when false, the caller should
// skip the object rather than emit a degenerate all-identity track.
func rotationsFromMotion(positions []valuetype.Value) (rotations []valuetype.Value, moved bool) {
	n := len(positions)
	rotations = make([]valuetype.Value, n)
	filled := make([]bool, n)
	firstMotion := -1

	for i := 1; i < n; i++ {
		prev := positions[i-1].Vec3
		cur := positions[i].Vec3
		dir := valuetype.Vec3{X: cur.X - prev.X, Y: cur.Y - prev.Y, Z: cur.Z - prev.Z}
		if vec3Negligible(dir) {
			continue
		}
		if firstMotion < 0 {
			firstMotion = i
		}
		rotations[i] = lookAtYaw(dir)
		filled[i] = true
	}

	if firstMotion < 0 {
		return nil, false
	}

	// Back-fill every frame before the first detected motion with that
	// first computed rotation (frame 0 equals frame 1 in the degenerate
	// single-step case).
	for i := 0; i < firstMotion; i++ {
		rotations[i] = rotations[firstMotion]
		filled[i] = true
	}
	// Forward-hold across frames where no new motion was detected.
	for i := firstMotion + 1; i < n; i++ {
		if !filled[i] {
			rotations[i] = rotations[i-1]
			filled[i] = true
		}
	}
	return rotations, true
}

func vec3Negligible(v valuetype.Vec3) bool {
	const eps = 1e-9
	return math.Abs(v.X) < eps && math.Abs(v.Y) < eps && math.Abs(v.Z) < eps
}

// lookAtYaw builds a yaw-only quaternion (rotation about world Y) facing
// dir, matching the XZ-plane look_at convention used by the host scene.
func lookAtYaw(dir valuetype.Vec3) valuetype.Value {
	yaw := math.Atan2(dir.Z, dir.X)
	half := yaw / 2
	return valuetype.NewQuat(valuetype.Quat{X: 0, Y: math.Sin(half), Z: 0, W: math.Cos(half)})
}
