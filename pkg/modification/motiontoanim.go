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

// animParamNames is the fixed output set, in emission order.
var animParamNames = []string{
	"move_x", "move_y", "move_z",
	"direction", "speed", "groundspeed", "rotationspeed",
	"skid_x", "skid_y",
}

const skidScale = 1.0 / 800.0

// MotionToAnimParameters derives the move_*/direction/speed/skid_* float
// tracks an animation graph's blend tree reads, from an object's
// LocalPosition (and, when present, LocalRotation) samples.
type MotionToAnimParameters struct {
	cancelled bool
}

// NewMotionToAnimParameters returns a ready-to-use modification.
func NewMotionToAnimParameters() *MotionToAnimParameters { return &MotionToAnimParameters{} }

func init() {
	RegisterDefault(NewMotionToAnimParameters())
}

// Name implements Modification.
func (m *MotionToAnimParameters) Name() string { return "Motion To Anim Parameters" }

// CanStart requires a LocalPosition child track on every object.
func (m *MotionToAnimParameters) CanStart(objects []Object, _ timeval.Range) bool {
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

// Cancel implements Modification.
func (m *MotionToAnimParameters) Cancel() { m.cancelled = true }

// Start implements Modification.
func (m *MotionToAnimParameters) Start(objects []Object, selection timeval.Range, sampleRate uint32) ([]CompiledTrack, error) {
	m.cancelled = false

	var out []CompiledTrack
	for _, o := range objects {
		if m.cancelled {
			return nil, ErrCancelled
		}
		posTrack := o.Children["LocalPosition"]
		positions, err := sampleTrack(posTrack, selection, sampleRate)
		if err != nil {
			return nil, err
		}
		if len(positions) < 2 {
			continue
		}

		var orientations []valuetype.Value
		if rotTrack, ok := o.Children["LocalRotation"]; ok {
			orientations, err = sampleTrack(rotTrack, selection, sampleRate)
			if err != nil {
				return nil, err
			}
		}

		series := deriveAnimParams(positions, orientations, float64(sampleRate))

		for i, name := range animParamNames {
			seq, err := buildSequence(selection, sampleRate, series[i])
			if err != nil {
				return nil, err
			}
			out = append(out, CompiledTrack{Ref: o.Ref, Name: name, Blocks: seq})
		}
	}
	return out, nil
}

// deriveAnimParams returns, for each name in animParamNames, one
// per-frame value series aligned with positions.
func deriveAnimParams(positions, orientations []valuetype.Value, rate float64) [9][]valuetype.Value {
	n := len(positions)
	var series [9][]valuetype.Value
	for i := range series {
		series[i] = make([]valuetype.Value, n)
	}

	velocities := make([]valuetype.Vec3, n)
	for i := 1; i < n; i++ {
		prev, cur := positions[i-1].Vec3, positions[i].Vec3
		velocities[i] = valuetype.Vec3{
			X: (cur.X - prev.X) * rate,
			Y: (cur.Y - prev.Y) * rate,
			Z: (cur.Z - prev.Z) * rate,
		}
	}
	velocities[0] = velocities[minInt(1, n-1)]

	yawSpeeds := make([]float64, n)
	if len(orientations) == n {
		for i := 1; i < n; i++ {
			prevYaw := yawDegrees(orientations[i-1].Quat)
			curYaw := yawDegrees(orientations[i].Quat)
			yawSpeeds[i] = wrapDeltaDegrees(curYaw-prevYaw) * rate
		}
		if n > 1 {
			yawSpeeds[0] = yawSpeeds[1]
		}
	}

	for i := 0; i < n; i++ {
		v := velocities[i]
		localV := v
		if len(orientations) == n {
			localV = rotateByInverse(orientations[i].Quat, v)
		}

		var accel valuetype.Vec3
		if i > 0 {
			pv := velocities[i-1]
			accel = valuetype.Vec3{X: v.X - pv.X, Y: v.Y - pv.Y, Z: v.Z - pv.Z}
		}
		localAccel := accel
		if len(orientations) == n {
			localAccel = rotateByInverse(orientations[i].Quat, accel)
		}

		speed := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
		groundspeed := math.Sqrt(v.X*v.X + v.Z*v.Z)
		direction := math.Atan2(localV.Z, localV.X) * 180 / math.Pi

		series[0][i] = valuetype.Float(localV.X)
		series[1][i] = valuetype.Float(-localV.Y)
		series[2][i] = valuetype.Float(localV.Z)
		series[3][i] = valuetype.Float(direction)
		series[4][i] = valuetype.Float(speed)
		series[5][i] = valuetype.Float(groundspeed)
		series[6][i] = valuetype.Float(yawSpeeds[i])
		series[7][i] = valuetype.Float(localAccel.X * skidScale)
		series[8][i] = valuetype.Float(-localAccel.Y * skidScale)
	}
	return series
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// yawDegrees extracts the Y-axis yaw angle, in degrees, from a rotation
// that RotateWithMotion's look_at produces (rotation about Y only).
func yawDegrees(q valuetype.Quat) float64 {
	return 2 * math.Atan2(q.Y, q.W) * 180 / math.Pi
}

// wrapDeltaDegrees normalizes an angular delta into (-180, 180].
func wrapDeltaDegrees(delta float64) float64 {
	for delta > 180 {
		delta -= 360
	}
	for delta <= -180 {
		delta += 360
	}
	return delta
}

// rotateByInverse rotates v from world space into the local space defined
// by orientation q (i.e. applies q's conjugate to v).
func rotateByInverse(q valuetype.Quat, v valuetype.Vec3) valuetype.Vec3 {
	conj := valuetype.Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
	return rotateVec3(conj, v)
}

// rotateVec3 applies quaternion q to vector v: q * v * q^-1, assuming q
// is unit (its conjugate is its inverse).
func rotateVec3(q valuetype.Quat, v valuetype.Vec3) valuetype.Vec3 {
	ux, uy, uz := q.X, q.Y, q.Z
	s := q.W

	// t = 2 * cross(u, v)
	tx := 2 * (uy*v.Z - uz*v.Y)
	ty := 2 * (uz*v.X - ux*v.Z)
	tz := 2 * (ux*v.Y - uy*v.X)

	return valuetype.Vec3{
		X: v.X + s*tx + (uy*tz - uz*ty),
		Y: v.Y + s*ty + (uz*tx - ux*tz),
		Z: v.Z + s*tz + (ux*ty - uy*tx),
	}
}
