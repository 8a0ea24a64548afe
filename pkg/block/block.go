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

// Package block implements the per-track sequence of Blocks: the
// non-overlapping, time-ordered run of Constant/Samples/Action spans that
// backs a sampled property track, plus the lazy compilation of keyframe
// curves into that same sequence. The ordered-append-and-truncate shape
// mirrors how hls.playlist keeps its segment list: new data lands at one
// end, stale entries are trimmed or split in place, never reshuffled.
package block

import (
	"errors"
	"fmt"
	"sort"

	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// Kind discriminates the three block payload shapes.
type Kind uint8

const (
	KindConstant Kind = iota
	KindSamples
	KindAction
)

// ErrZeroDuration is returned when a non-Action block is given an empty range.
var ErrZeroDuration = errors.New("block: non-action block must have positive duration")

// ErrUnordered is returned when add_range is given an input sequence that is
// not itself ordered and non-overlapping.
var ErrUnordered = errors.New("block: incoming blocks are not ordered and non-overlapping")

// ErrSampleCount is returned when a Samples block's Samples length doesn't
// match frameCount(range, SampleRate).
var ErrSampleCount = errors.New("block: samples length does not match range at sample rate")

// Block is one (TimeRange, payload) unit of track data.
type Block struct {
	Kind  Kind
	Range timeval.Range

	// Constant holds the held value when Kind == KindConstant.
	Constant valuetype.Value

	// Samples holds the dense per-frame array when Kind == KindSamples.
	// Samples[i] is the value at Range.Start + i/SampleRate; len(Samples) ==
	// frameCount(Range, SampleRate), the end boundary owned by whatever
	// block comes next.
	Samples    []valuetype.Value
	SampleRate uint32

	// Action holds the fired payload when Kind == KindAction.
	Action valuetype.Value
}

// NewConstant builds a Constant block over a positive-duration range.
func NewConstant(r timeval.Range, v valuetype.Value) (Block, error) {
	if r.IsEmpty() {
		return Block{}, ErrZeroDuration
	}
	return Block{Kind: KindConstant, Range: r, Constant: v}, nil
}

// NewSamples builds a Samples block. Sample i holds the value at
// r.Start + i/rate; len(values) must equal frameCount(r, rate), one
// sample per period, so the block's own [Start, End) range is exactly
// covered without duplicating the boundary value owned by whatever comes
// next.
func NewSamples(r timeval.Range, rate uint32, values []valuetype.Value) (Block, error) {
	if r.IsEmpty() {
		return Block{}, ErrZeroDuration
	}
	n, err := timeval.FrameCount(r, rate)
	if err != nil {
		return Block{}, err
	}
	if int64(len(values)) != n {
		return Block{}, fmt.Errorf("%w: want %d, got %d", ErrSampleCount, n, len(values))
	}
	return Block{Kind: KindSamples, Range: r, SampleRate: rate, Samples: values}, nil
}

// NewAction builds an Action block. r may be empty (zero duration).
func NewAction(r timeval.Range, payload valuetype.Value) Block {
	return Block{Kind: KindAction, Range: r, Action: payload}
}

// Sequence is the ordered, non-overlapping run of blocks for one track.
type Sequence struct {
	blocks []Block
}

// NewSequence wraps an already-ordered, non-overlapping slice. Callers that
// aren't sure should build an empty Sequence and use AddRange instead.
func NewSequence(blocks []Block) *Sequence {
	cp := make([]Block, len(blocks))
	copy(cp, blocks)
	return &Sequence{blocks: cp}
}

// Len reports the number of blocks currently held.
func (s *Sequence) Len() int { return len(s.blocks) }

// All returns the full block list in time order. The caller must not
// mutate the returned slice.
func (s *Sequence) All() []Block { return s.blocks }

// GetBlocks returns, in time order, every block whose range intersects r.
func (s *Sequence) GetBlocks(r timeval.Range) []Block {
	lo := sort.Search(len(s.blocks), func(i int) bool {
		return s.blocks[i].Range.End > r.Start
	})
	var out []Block
	for i := lo; i < len(s.blocks); i++ {
		b := s.blocks[i]
		if b.Range.Start >= r.End && !(b.Range.IsEmpty() && b.Range.Start == r.End && r.IsEmpty()) {
			break
		}
		if blockIntersects(b, r) {
			out = append(out, b)
		}
	}
	return out
}

func blockIntersects(b Block, r timeval.Range) bool {
	if b.Kind == KindAction && b.Range.IsEmpty() {
		return r.Contains(b.Range.Start) || (r.IsEmpty() && r.Start == b.Range.Start)
	}
	return b.Range.Intersects(r)
}

// GetValueAt locates the block containing t and evaluates it. Outside any
// block it returns the rightmost block's trailing value if t is at or past
// its end (last known value), the leftmost block's value if t precedes
// everything, or def if the sequence is empty.
func (s *Sequence) GetValueAt(t timeval.T, def valuetype.Value) valuetype.Value {
	if len(s.blocks) == 0 {
		return def
	}
	idx := sort.Search(len(s.blocks), func(i int) bool {
		return s.blocks[i].Range.End > t
	})
	if idx < len(s.blocks) && s.blocks[idx].Range.Contains(t) {
		return evalBlock(s.blocks[idx], t)
	}
	if idx < len(s.blocks) && s.blocks[idx].Kind == KindAction && s.blocks[idx].Range.Start == t {
		return evalBlock(s.blocks[idx], t)
	}
	// t falls in a gap or past the end: last known value is the rightmost
	// block ending at or before t, else the leftmost block's first value.
	if idx == 0 {
		return evalBlockStart(s.blocks[0])
	}
	return evalBlockEnd(s.blocks[idx-1])
}

func evalBlock(b Block, t timeval.T) valuetype.Value {
	switch b.Kind {
	case KindConstant:
		return b.Constant
	case KindAction:
		return b.Action
	case KindSamples:
		return sampleAt(b, t)
	}
	return valuetype.Value{}
}

func sampleAt(b Block, t timeval.T) valuetype.Value {
	tc := b.Range.Clamp(t)
	if len(b.Samples) == 1 {
		return b.Samples[0]
	}
	offset := tc - b.Range.Start
	frame, onGrid, ferr := offset.Frame(b.SampleRate)
	if ferr != nil {
		return b.Samples[0]
	}
	last := int64(len(b.Samples)) - 1
	if frame >= last {
		return b.Samples[last]
	}
	if frame < 0 {
		return b.Samples[0]
	}
	if onGrid {
		return b.Samples[frame]
	}
	frameT, _ := timeval.FromFrames(frame, b.SampleRate)
	nextT, _ := timeval.FromFrames(frame+1, b.SampleRate)
	span := nextT - frameT
	if span == 0 {
		return b.Samples[frame]
	}
	frac := float64(offset-frameT) / float64(span)
	return valuetype.Lerp(b.Samples[frame], b.Samples[frame+1], frac)
}

func evalBlockStart(b Block) valuetype.Value {
	switch b.Kind {
	case KindConstant:
		return b.Constant
	case KindAction:
		return b.Action
	case KindSamples:
		return b.Samples[0]
	}
	return valuetype.Value{}
}

func evalBlockEnd(b Block) valuetype.Value {
	switch b.Kind {
	case KindConstant:
		return b.Constant
	case KindAction:
		return b.Action
	case KindSamples:
		return b.Samples[len(b.Samples)-1]
	}
	return valuetype.Value{}
}

// AddRange inserts an ordered, non-overlapping sequence of incoming blocks,
// resolving conflicts with existing blocks per the overwrite policy: an
// incoming range strictly containing an existing block removes it;
// overlap of a prefix/suffix truncates the existing block on that side;
// an incoming range strictly inside an existing block splits it in two.
func (s *Sequence) AddRange(incoming []Block) error {
	if !isOrdered(incoming) {
		return ErrUnordered
	}
	if len(incoming) == 0 {
		return nil
	}
	span := timeval.NewRange(incoming[0].Range.Start, incoming[len(incoming)-1].Range.End)

	var kept []Block
	for _, existing := range s.blocks {
		kept = append(kept, resolveConflict(existing, span)...)
	}
	kept = append(kept, incoming...)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Range.Start < kept[j].Range.Start
	})
	s.blocks = kept
	return nil
}

// resolveConflict applies the strictly-contains / prefix-suffix-truncate /
// strictly-inside-split policy to one existing block against the incoming
// span, returning the fragments of existing that survive.
func resolveConflict(existing Block, span timeval.Range) []Block {
	if !existing.Range.Intersects(span) {
		return []Block{existing}
	}
	if span.Start <= existing.Range.Start && span.End >= existing.Range.End {
		// Strictly contains (or exactly covers): existing is removed.
		return nil
	}
	if span.Start <= existing.Range.Start {
		// Overlaps the existing block's prefix: truncate the left side.
		truncated, ok := truncateLeft(existing, span.End)
		if !ok {
			return nil
		}
		return []Block{truncated}
	}
	if span.End >= existing.Range.End {
		// Overlaps the existing block's suffix: truncate the right side.
		truncated, ok := truncateRight(existing, span.Start)
		if !ok {
			return nil
		}
		return []Block{truncated}
	}
	// Strictly inside: split existing into a left and right remainder.
	left, leftOK := truncateRight(existing, span.Start)
	right, rightOK := truncateLeft(existing, span.End)
	var out []Block
	if leftOK {
		out = append(out, left)
	}
	if rightOK {
		out = append(out, right)
	}
	return out
}

// truncateRight keeps the part of b before cut, b.Range.Start <= cut.
func truncateRight(b Block, cut timeval.T) (Block, bool) {
	if cut <= b.Range.Start {
		return Block{}, false
	}
	if cut >= b.Range.End {
		return b, true
	}
	newRange := timeval.NewRange(b.Range.Start, cut)
	return resliceBlock(b, newRange)
}

// truncateLeft keeps the part of b at or after cut.
func truncateLeft(b Block, cut timeval.T) (Block, bool) {
	if cut >= b.Range.End {
		return Block{}, false
	}
	if cut <= b.Range.Start {
		return b, true
	}
	newRange := timeval.NewRange(cut, b.Range.End)
	return resliceBlock(b, newRange)
}

// resliceBlock re-derives b's payload for a sub-range. For Samples it
// re-slices the sample array at the frame boundary closest to but not
// crossing the new edge, preserving existing data rather than resampling.
func resliceBlock(b Block, newRange timeval.Range) (Block, bool) {
	switch b.Kind {
	case KindConstant:
		b.Range = newRange
		return b, true
	case KindAction:
		if !newRange.Contains(b.Range.Start) && newRange.Start != b.Range.Start {
			return Block{}, false
		}
		b.Range = newRange
		return b, true
	case KindSamples:
		return resliceSamples(b, newRange)
	}
	return Block{}, false
}

// resliceSamples re-slices b's sample array to cover newRange. Sample i
// occupies period [i, i+1) relative to b.Range.Start, so the kept frame
// span is [startFrame, endFrame) — a partial leading period is dropped
// (round toward preserving existing data) and a partial trailing period
// is dropped by truncation, never resampled.
func resliceSamples(b Block, newRange timeval.Range) (Block, bool) {
	n := int64(len(b.Samples))
	startOffset := newRange.Start - b.Range.Start
	endOffset := newRange.End - b.Range.Start

	startFrame, startOnGrid, _ := startOffset.Frame(b.SampleRate)
	if !startOnGrid {
		startFrame++
	}
	endFrame, _, _ := endOffset.Frame(b.SampleRate)

	if startFrame < 0 {
		startFrame = 0
	}
	if endFrame > n {
		endFrame = n
	}
	if startFrame >= endFrame {
		return Block{}, false
	}

	alignedStart, _ := timeval.FromFrames(startFrame, b.SampleRate)
	alignedEnd, _ := timeval.FromFrames(endFrame, b.SampleRate)
	out := make([]valuetype.Value, endFrame-startFrame)
	copy(out, b.Samples[startFrame:endFrame])

	b.Range = timeval.NewRange(b.Range.Start+alignedStart, b.Range.Start+alignedEnd)
	b.Samples = out
	return b, true
}

// Shift translates every block's range by delta; payloads are unchanged.
func (s *Sequence) Shift(delta timeval.T) {
	for i := range s.blocks {
		s.blocks[i].Range = s.blocks[i].Range.Shift(delta)
	}
}

// Remove erases blocks inside r and truncates/splits partially overlapping
// ones, using the same resolution rules as AddRange.
func (s *Sequence) Remove(r timeval.Range) {
	var kept []Block
	for _, existing := range s.blocks {
		kept = append(kept, resolveConflict(existing, r)...)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Range.Start < kept[j].Range.Start
	})
	s.blocks = kept
}

func isOrdered(blocks []Block) bool {
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Range.Start < blocks[i-1].Range.End {
			return false
		}
	}
	for _, b := range blocks {
		if b.Kind != KindAction && b.Range.IsEmpty() {
			return false
		}
	}
	return true
}
