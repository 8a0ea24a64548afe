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

// Package timeval implements exact fixed-point timeline arithmetic.
//
// All times are a signed count of ticks, one tick being 1/BaseRate seconds.
// BaseRate is highly composite so every sample rate the engine supports
// divides it evenly, which keeps frame <-> tick conversion exact integer
// arithmetic with no floating point at time boundaries.
package timeval

import (
	"errors"
	"fmt"
)

// BaseRate is the number of ticks per second. It must stay divisible by
// every sample rate a project can declare (24, 25, 30, 50, 60, 120, 240...).
const BaseRate = 60000

// ErrInvalidSampleRate is returned when a rate does not divide BaseRate.
var ErrInvalidSampleRate = errors.New("sample rate does not evenly divide BaseRate")

// T is a tick count. Zero is 0 ticks; there is no NaN or infinity.
type T int64

// Zero is the additive identity.
const Zero T = 0

// FromFrames converts a frame index at the given sample rate to a T.
// rate must evenly divide BaseRate.
func FromFrames(frame int64, rate uint32) (T, error) {
	period, err := period(rate)
	if err != nil {
		return 0, err
	}
	return T(frame) * period, nil
}

// period returns the number of ticks per sample at rate.
func period(rate uint32) (T, error) {
	if rate == 0 || BaseRate%int64(rate) != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, rate)
	}
	return T(BaseRate / int64(rate)), nil
}

// Add returns t+d, saturating at the int64 range instead of overflowing.
func (t T) Add(d T) T {
	sum := int64(t) + int64(d)
	switch {
	case d > 0 && sum < int64(t):
		return T(maxInt64)
	case d < 0 && sum > int64(t):
		return T(minInt64)
	default:
		return T(sum)
	}
}

// Sub returns t-d, saturating the same way as Add.
func (t T) Sub(d T) T {
	return t.Add(-d)
}

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// Scale multiplies t by the rational num/den, truncating toward zero.
func (t T) Scale(num, den int64) T {
	if den == 0 {
		return 0
	}
	return T(int64(t) * num / den)
}

// Floor returns the greatest multiple of step not exceeding t. step must be
// positive. Ticks below zero floor toward negative infinity; Go's integer
// division truncates toward zero, so the quotient is corrected for them.
func (t T) Floor(step T) T {
	if step <= 0 {
		return t
	}
	q := int64(t) / int64(step)
	if int64(t)%int64(step) != 0 && t < 0 {
		q--
	}
	return T(q) * step
}

// Ceil returns the least multiple of step not less than t.
func (t T) Ceil(step T) T {
	floored := t.Floor(step)
	if floored == t {
		return t
	}
	return floored + step
}

// Frame returns the frame index of t at rate, and whether t lands exactly
// on the sample grid (k ticks such that t == k*period).
func (t T) Frame(rate uint32) (int64, bool, error) {
	p, err := period(rate)
	if err != nil {
		return 0, false, err
	}
	return int64(t) / int64(p), int64(t)%int64(p) == 0, nil
}

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater than
// other.
func (t T) Compare(other T) int {
	switch {
	case t < other:
		return -1
	case t > other:
		return 1
	default:
		return 0
	}
}

// Seconds returns t as a floating-point second count, for display only —
// never used in comparisons or arithmetic that must stay exact.
func (t T) Seconds() float64 {
	return float64(t) / float64(BaseRate)
}

// String renders t as mm:ss.mmm, the format the editor shell's transport
// bar and log lines both expect.
func (t T) String() string {
	neg := ""
	v := t
	if v < 0 {
		neg = "-"
		v = -v
	}
	totalMillis := int64(v) * 1000 / BaseRate
	ms := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	s := totalSeconds % 60
	m := totalSeconds / 60
	return fmt.Sprintf("%s%02d:%02d.%03d", neg, m, s, ms)
}

// Range is a half-open [Start, End) span of ticks. Start must be <= End;
// an empty range has Duration() == 0.
type Range struct {
	Start T
	End   T
}

// NewRange builds a Range, swapping the bounds if given in the wrong order.
func NewRange(start, end T) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Duration is End-Start, always >= 0.
func (r Range) Duration() T {
	return r.End - r.Start
}

// IsEmpty reports whether the range spans zero ticks.
func (r Range) IsEmpty() bool {
	return r.Duration() == 0
}

// Contains reports whether t falls within the half-open range.
func (r Range) Contains(t T) bool {
	return t >= r.Start && t < r.End
}

// Intersects reports whether r and other share any tick.
func (r Range) Intersects(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Intersect returns the overlap of r and other. ok is false when they
// don't overlap, in which case the returned Range is the zero value.
func (r Range) Intersect(other Range) (Range, bool) {
	if !r.Intersects(other) {
		return Range{}, false
	}
	start := r.Start
	if other.Start > start {
		start = other.Start
	}
	end := r.End
	if other.End < end {
		end = other.End
	}
	return Range{Start: start, End: end}, true
}

// UnionIfContiguous merges r and other into one range when they touch or
// overlap. ok is false when there is a gap between them.
func (r Range) UnionIfContiguous(other Range) (Range, bool) {
	if r.End < other.Start || other.End < r.Start {
		return Range{}, false
	}
	start := r.Start
	if other.Start < start {
		start = other.Start
	}
	end := r.End
	if other.End > end {
		end = other.End
	}
	return Range{Start: start, End: end}, true
}

// Clamp restricts t to [r.Start, r.End], clamping the end inclusively so
// playback at the exact end of a block still resolves to its last sample.
func (r Range) Clamp(t T) T {
	if t < r.Start {
		return r.Start
	}
	if t > r.End {
		return r.End
	}
	return t
}

// Shift translates the range by delta.
func (r Range) Shift(delta T) Range {
	return Range{Start: r.Start.Add(delta), End: r.End.Add(delta)}
}

// SplitAt divides r into [Start, at) and [at, End). ok is false when at
// falls outside the range, in which case left or right may be empty and
// equal to r.
func (r Range) SplitAt(at T) (left, right Range, ok bool) {
	if at <= r.Start || at >= r.End {
		return r, Range{Start: at, End: at}, false
	}
	return Range{Start: r.Start, End: at}, Range{Start: at, End: r.End}, true
}

// FrameCount is the number of sample steps range spans at rate, truncated
// when the duration is not an exact multiple of the sample period.
func FrameCount(r Range, rate uint32) (int64, error) {
	p, err := period(rate)
	if err != nil {
		return 0, err
	}
	return int64(r.Duration()) / int64(p), nil
}
