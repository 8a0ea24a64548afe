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

// Package recorder implements the per-track Idle/Armed/Recording/Finished
// state machine that turns live Binder reads into committed blocks. The
// state enum, hooked transition logging, and event-channel-fed live feed
// are grounded on monitor.Recorder's start loop, reshaped from its
// goroutine/select form into the engine's single-threaded cooperative
// advance(delta) call (the source's coroutine/event-loop usage maps to a
// plain method call per the ordering guarantees of the main tick).
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/valuetype"
)

// State is one track's position in the recording state machine.
type State uint8

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ErrNotArmed is returned by Add when a track is already past Idle.
var ErrNotArmed = errors.New("recorder: track is already armed or recording")

// ErrNotRecording is returned when Commit is attempted before any track has
// started recording.
var ErrNotRecording = errors.New("recorder: no track is recording")

// Source is a live Binder-backed read for one recorded property.
type Source struct {
	TrackID string
	Read    func() valuetype.Value
	Kind    valuetype.Kind
}

type trackState struct {
	source  Source
	state   State
	current *block.Block
	samples []valuetype.Value
	start   timeval.T
	finished []block.Block
}

// Options configures a recording session.
type Options struct {
	SampleRate uint32
	StartTime  timeval.T
}

// Event is one track's state transition, broadcast to every live preview
// subscriber alongside the synchronous onEvent callback.
type Event struct {
	TrackID string
	State   State
}

type eventFeed chan Event

// Feed is a read-only subscription to a Recorder's event broadcast.
type Feed <-chan Event

// CancelFunc cancels a Feed subscription.
type CancelFunc func()

// Recorder drives the per-track Idle -> Armed -> Recording -> Finished
// state machine, sampling each tracked property's Binder-backed value
// every advance(delta) and producing aligned Samples blocks.
type Recorder struct {
	mu      sync.Mutex
	opts    Options
	tracks  map[string]*trackState
	now     timeval.T
	onEvent func(trackID string, s State)

	feed  eventFeed
	sub   chan eventFeed
	unsub chan eventFeed
}

// New creates a Recorder over trackSet (the set of Source reads to
// record), armed but not yet sampling. onEvent, if non-nil, is called
// synchronously on every state transition; Subscribe offers the same
// transitions as a broadcast feed for an out-of-process live preview.
func New(opts Options, trackSet []Source, onEvent func(string, State)) *Recorder {
	r := &Recorder{
		opts:    opts,
		tracks:  make(map[string]*trackState, len(trackSet)),
		now:     opts.StartTime,
		onEvent: onEvent,
		feed:    make(eventFeed),
		sub:     make(chan eventFeed),
		unsub:   make(chan eventFeed),
	}
	for _, s := range trackSet {
		r.tracks[s.TrackID] = &trackState{source: s, state: StateArmed}
		r.fire(s.TrackID, StateArmed)
	}
	return r
}

func (r *Recorder) fire(trackID string, s State) {
	if r.onEvent != nil {
		r.onEvent(trackID, s)
	}
	select {
	case r.feed <- Event{TrackID: trackID, State: s}:
	default:
		// No run-loop goroutine started (Start was never called) or no
		// subscriber ready; live preview is best-effort, matching
		// player.Player.render's push.
	}
}

// Start runs the feed broadcast loop until ctx is cancelled, mirroring
// player.Player.Start's sub/unsub/feed select loop.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		subs := map[eventFeed]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-r.sub:
				subs[ch] = struct{}{}
			case ch := <-r.unsub:
				close(ch)
				delete(subs, ch)
			case event := <-r.feed:
				for ch := range subs {
					select {
					case ch <- event:
					default:
					}
				}
			}
		}
	}()
}

// Subscribe returns a new event feed and its cancel function.
func (r *Recorder) Subscribe() (Feed, CancelFunc) {
	ch := make(eventFeed)
	r.sub <- ch
	return ch, func() { r.unSubscribe(ch) }
}

func (r *Recorder) unSubscribe(ch eventFeed) {
	for {
		select {
		case r.unsub <- ch:
			return
		case <-ch:
		}
	}
}

// Add arms a track mid-session. Fails ErrNotArmed if it's already past Idle.
func (r *Recorder) Add(source Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts, ok := r.tracks[source.TrackID]; ok && ts.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrNotArmed, source.TrackID)
	}
	r.tracks[source.TrackID] = &trackState{source: source, state: StateArmed}
	r.fire(source.TrackID, StateArmed)
	return nil
}

// Advance samples every tracked property at the new time. delta must be
// positive; non-positive deltas are a no-op per the state machine.
func (r *Recorder) Advance(delta timeval.T) {
	if delta <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.now = r.now.Add(delta)
	grid := r.now.Floor(period(r.opts.SampleRate))

	for id, ts := range r.tracks {
		if ts.state == StateFinished {
			continue
		}
		value := ts.source.Read()

		switch ts.state {
		case StateArmed:
			ts.state = StateRecording
			ts.start = grid
			ts.samples = []valuetype.Value{value}
			r.fire(id, StateRecording)
		case StateRecording:
			if len(ts.samples) > 0 && valuetype.Equal(value, ts.samples[len(ts.samples)-1]) {
				// Continue the open block by appending the repeated
				// sample rather than opening a new one.
				ts.samples = append(ts.samples, value)
				continue
			}
			ts.samples = append(ts.samples, value)
		}
	}
}

func period(rate uint32) timeval.T {
	p, err := timeval.FromFrames(1, rate)
	if err != nil {
		return timeval.T(timeval.BaseRate)
	}
	return p
}

// CurrentBlock returns the in-progress tail block for trackID, for
// preview rendering while still recording.
func (r *Recorder) CurrentBlock(trackID string) (block.Block, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.tracks[trackID]
	if !ok || len(ts.samples) == 0 {
		return block.Block{}, false
	}
	return r.buildBlock(ts)
}

func (r *Recorder) buildBlock(ts *trackState) (block.Block, bool) {
	end := ts.start.Add(period(r.opts.SampleRate).Scale(int64(len(ts.samples)-1), 1))
	rng := timeval.NewRange(ts.start, end.Add(period(r.opts.SampleRate)))
	if allAlmostEqual(ts.samples) {
		b, err := block.NewConstant(rng, ts.samples[0])
		if err != nil {
			return block.Block{}, false
		}
		return b, true
	}
	b, err := block.NewSamples(rng, r.opts.SampleRate, ts.samples)
	if err != nil {
		return block.Block{}, false
	}
	return b, true
}

func allAlmostEqual(values []valuetype.Value) bool {
	for i := 1; i < len(values); i++ {
		if !valuetype.AlmostEqual(values[0], values[i], 0) {
			return false
		}
	}
	return true
}

// FinishedBlocks returns trackID's completed blocks so far (empty until
// Stop finalizes the open tail).
func (r *Recorder) FinishedBlocks(trackID string) []block.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.tracks[trackID]
	if !ok {
		return nil
	}
	return append([]block.Block{}, ts.finished...)
}

// Stop finalizes every recording track's open block.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ts := range r.tracks {
		if ts.state != StateRecording {
			continue
		}
		if b, ok := r.buildBlock(ts); ok {
			ts.finished = append(ts.finished, b)
		}
		ts.state = StateFinished
		r.fire(id, StateFinished)
	}
}

// Commit merges every track's finished blocks plus its still-open tail into
// dest via AddRange, and returns a fresh provenance identity for the
// committed data. Block times are already absolute, since the recorder's
// clock starts at Options.StartTime. Fails ErrNotRecording if no track has
// started recording.
func (r *Recorder) Commit(dest map[string]*block.Sequence, originTag string, newGUID func() string) (SourceClip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := false
	for _, ts := range r.tracks {
		if ts.state == StateRecording || ts.state == StateFinished {
			started = true
			break
		}
	}
	if !started {
		return SourceClip{}, ErrNotRecording
	}

	clip := SourceClip{ID: newGUID(), OriginTag: originTag}
	for id, ts := range r.tracks {
		blocks := ts.finished
		if ts.state == StateRecording && len(ts.samples) > 0 {
			if b, ok := r.buildBlock(ts); ok {
				blocks = append(append([]block.Block{}, ts.finished...), b)
			}
		}
		seq, ok := dest[id]
		if !ok || len(blocks) == 0 {
			continue
		}
		if err := seq.AddRange(blocks); err != nil {
			return SourceClip{}, fmt.Errorf("commit track %s: %w", id, err)
		}
	}
	return clip, nil
}

// SourceClip is the provenance identity the recorder emits on commit so
// downstream blocks can reference their origin.
type SourceClip struct {
	ID        string
	OriginTag string
}
