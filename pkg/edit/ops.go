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
	"fmt"
	"sort"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
)

// Selection names the tracks and time range an edit operation acts on.
type Selection struct {
	TrackIDs []string
	Range    timeval.Range
}

// snapshotOf captures trackID's pre-operation state for the History log.
func snapshotOf(t *track.Track) TrackSnapshot {
	var blocks []block.Block
	if t.Blocks != nil {
		blocks = append(blocks, t.Blocks.All()...)
	}
	return TrackSnapshot{TrackID: t.ID, Blocks: blocks}
}

// Copy serializes every selected Keyframed track's in-range keyframes
// into a Clipboard, anchored at the earliest selected keyframe's time.
func Copy(tracks map[string]*track.Track, sel Selection) (Clipboard, error) {
	var groups []Group
	var anchor timeval.T
	haveAnchor := false

	ids := append([]string{}, sel.TrackIDs...)
	sort.Strings(ids)

	for _, id := range ids {
		t, ok := tracks[id]
		if !ok || !t.Keyframed {
			continue
		}
		var picked []block.Keyframe
		for _, k := range t.Curve {
			if sel.Range.Contains(k.Time) {
				picked = append(picked, k)
				if !haveAnchor || k.Time < anchor {
					anchor = k.Time
					haveAnchor = true
				}
			}
		}
		if len(picked) == 0 {
			continue
		}
		groups = append(groups, Group{
			TrackID:    t.ID,
			TargetType: t.PropValueKind.String(),
			Keyframes:  picked,
		})
	}

	return Clipboard{Time: anchor, Groups: groups}, nil
}

// Paste applies a clipboard to the track tree. When the clipboard has
// exactly one group and targetTrackID is non-empty, the group pastes
// onto targetTrackID regardless of its own TrackID (paste onto the
// current selection); otherwise groups paste by track id match. Every
// target track's TargetType must be assignable to the declared property
// kind, or the whole paste fails with ErrTypeMismatch and no track is
// touched.
func Paste(tracks map[string]*track.Track, clip Clipboard, targetTrackID string, playheadTime timeval.T) ([]TrackSnapshot, error) {
	offset := playheadTime.Sub(clip.Time)

	type plan struct {
		track *track.Track
		kfs   []block.Keyframe
	}
	var plans []plan

	singleTargeted := len(clip.Groups) == 1 && targetTrackID != ""
	for _, g := range clip.Groups {
		destID := g.TrackID
		if singleTargeted {
			destID = targetTrackID
		}
		dest, ok := tracks[destID]
		if !ok {
			return nil, fmt.Errorf("%w: no such track %s", track.ErrNotFound, destID)
		}
		if dest.PropValueKind.String() != g.TargetType {
			return nil, fmt.Errorf("%w: %s into %s", ErrTypeMismatch, g.TargetType, dest.ID)
		}
		shifted := make([]block.Keyframe, len(g.Keyframes))
		for i, k := range g.Keyframes {
			shifted[i] = block.Keyframe{Time: k.Time.Add(offset), Value: k.Value, Interpolation: k.Interpolation}
		}
		plans = append(plans, plan{track: dest, kfs: shifted})
	}

	var snapshots []TrackSnapshot
	for _, p := range plans {
		snapshots = append(snapshots, snapshotOf(p.track))
		p.track.Curve = mergeKeyframes(p.track.Curve, p.kfs)
		if err := recompile(p.track); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

// mergeKeyframes splices incoming into existing, replacing any existing
// keyframe at the same time, and keeping the result sorted by time.
func mergeKeyframes(existing, incoming []block.Keyframe) []block.Keyframe {
	byTime := make(map[timeval.T]block.Keyframe, len(existing)+len(incoming))
	for _, k := range existing {
		byTime[k.Time] = k
	}
	for _, k := range incoming {
		byTime[k.Time] = k
	}
	out := make([]block.Keyframe, 0, len(byTime))
	for _, k := range byTime {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func recompile(t *track.Track) error {
	rate := t.SampleRate
	if rate == 0 {
		rate = 30
	}
	seq, err := block.Compile(t.Curve, rate)
	if err != nil {
		return fmt.Errorf("could not recompile track %s: %w", t.ID, err)
	}
	t.Blocks = seq
	return nil
}

// Cut is Copy followed by Delete over the same selection.
func Cut(tracks map[string]*track.Track, sel Selection) (Clipboard, []TrackSnapshot, error) {
	clip, err := Copy(tracks, sel)
	if err != nil {
		return Clipboard{}, nil, err
	}
	snapshots := Delete(tracks, sel)
	return clip, snapshots, nil
}

// Delete removes every selected track's keyframes/blocks inside sel's
// range, returning the pre-operation snapshots for a History push.
func Delete(tracks map[string]*track.Track, sel Selection) []TrackSnapshot {
	var snapshots []TrackSnapshot
	for _, id := range sel.TrackIDs {
		t, ok := tracks[id]
		if !ok {
			continue
		}
		snapshots = append(snapshots, snapshotOf(t))
		if t.Keyframed {
			t.Curve = removeKeyframesInRange(t.Curve, sel.Range)
			_ = recompile(t)
			continue
		}
		if t.Blocks != nil {
			t.Blocks.Remove(sel.Range)
		}
	}
	return snapshots
}

func removeKeyframesInRange(curve []block.Keyframe, r timeval.Range) []block.Keyframe {
	var out []block.Keyframe
	for _, k := range curve {
		if !r.Contains(k.Time) {
			out = append(out, k)
		}
	}
	return out
}

// Move shifts every selected track's blocks/keyframes by delta,
// resolving collisions with the overwrite policy (for committed-block
// tracks) or by replacing same-time keyframes (for keyframed tracks).
func Move(tracks map[string]*track.Track, sel Selection, delta timeval.T) ([]TrackSnapshot, error) {
	var snapshots []TrackSnapshot
	for _, id := range sel.TrackIDs {
		t, ok := tracks[id]
		if !ok {
			continue
		}
		snapshots = append(snapshots, snapshotOf(t))

		if t.Keyframed {
			var moved, kept []block.Keyframe
			for _, k := range t.Curve {
				if sel.Range.Contains(k.Time) {
					moved = append(moved, block.Keyframe{Time: k.Time.Add(delta), Value: k.Value, Interpolation: k.Interpolation})
				} else {
					kept = append(kept, k)
				}
			}
			t.Curve = mergeKeyframes(kept, moved)
			if err := recompile(t); err != nil {
				return nil, err
			}
			continue
		}

		if t.Blocks == nil {
			continue
		}
		moving := t.Blocks.GetBlocks(sel.Range)
		t.Blocks.Remove(sel.Range)
		shifted := make([]block.Block, len(moving))
		for i, b := range moving {
			shifted[i] = b
			shifted[i].Range = timeval.NewRange(b.Range.Start.Add(delta), b.Range.End.Add(delta))
		}
		if err := t.Blocks.AddRange(shifted); err != nil {
			return nil, fmt.Errorf("could not move blocks on track %s: %w", t.ID, err)
		}
	}
	return snapshots, nil
}

// Restore applies a History entry's pre-operation snapshots back onto
// the track tree, the mechanism Undo uses to unwind a pushed operation.
func Restore(tracks map[string]*track.Track, snapshots []TrackSnapshot) {
	for _, snap := range snapshots {
		t, ok := tracks[snap.TrackID]
		if !ok {
			continue
		}
		t.Blocks = block.NewSequence(snap.Blocks)
	}
}
