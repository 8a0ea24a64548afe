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

// Package player samples a clip's property tracks at a time and writes
// them through the Binder. The ordering guarantee — all property writes
// complete before bone composition, which completes before the scene
// renders — is enforced by render()'s fixed three-step sequence. The live
// preview feed (sub/unsub/feed channel trio, broadcast goroutine) is
// grounded on log.Logger's pub-sub shape.
package player

import (
	"context"
	"sync"

	"moviecore/pkg/binder"
	"moviecore/pkg/block"
	"moviecore/pkg/timeval"
	"moviecore/pkg/track"
	"moviecore/pkg/valuetype"
)

// Mode is the Player's current playback state.
type Mode uint8

const (
	ModePaused Mode = iota
	ModePlaying
	ModeScrubbing
)

// Clip is the set of property tracks a Player walks each sample step.
// Ref tracks hold no blocks and are never walked directly; they're only
// reached as a Prop track's parent during resolution.
type Clip struct {
	Properties []*track.Track
}

// NewClip wraps the given Prop tracks. Tracks of Kind Ref are dropped —
// they act only as naming parents, never as write targets.
func NewClip(tracks []*track.Track) *Clip {
	c := &Clip{}
	for _, t := range tracks {
		if t.Kind == track.KindProp {
			c.Properties = append(c.Properties, t)
		}
	}
	return c
}

// Muted returns a filtered view of c that omits the named tracks, so a
// Recorder's in-progress tracks read their pre-recording state instead of
// being contaminated by the Player's own writes.
func (c *Clip) Muted(trackIDs map[string]bool) *Clip {
	if len(trackIDs) == 0 {
		return c
	}
	out := &Clip{}
	for _, t := range c.Properties {
		if !trackIDs[t.ID] {
			out.Properties = append(out.Properties, t)
		}
	}
	return out
}

// Tick is one rendered sample step, pushed to live preview subscribers.
type Tick struct {
	Time timeval.T
}

type feedChan chan Tick

// Feed is a read-only subscription to a Player's tick broadcast.
type Feed <-chan Tick

// CancelFunc cancels a Feed subscription.
type CancelFunc func()

// Player walks a Clip at a time and writes every resolved property
// through the Binder, in the scheduling model's single-threaded
// cooperative style: Advance/SetTime are called from the one editor
// thread, never concurrently with track/block mutation.
type Player struct {
	mu      sync.Mutex
	binder  *binder.Binder
	clip    *Clip
	mode    Mode
	time    timeval.T
	rate    float64
	compose func()

	feed  feedChan
	sub   chan feedChan
	unsub chan feedChan
}

// New constructs a Player. compose, if non-nil, is called after every
// tick's property writes and before subscribers are notified — the bone
// accessor's applied phase.
func New(compose func()) *Player {
	return &Player{
		rate:    1.0,
		compose: compose,
		feed:    make(feedChan),
		sub:     make(chan feedChan),
		unsub:   make(chan feedChan),
	}
}

// SetBinder installs the Binder used to resolve property writes.
func (p *Player) SetBinder(b *binder.Binder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.binder = b
}

// SetClip installs the clip to walk on every tick.
func (p *Player) SetClip(c *Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clip = c
}

// Play switches to Playing: Advance will move time forward at wall-clock
// times rate.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = ModePlaying
}

// Pause switches to Paused: Advance no longer moves time.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = ModePaused
}

// SetRate sets the playback rate multiplier applied during Advance.
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
}

// SetTime scrubs directly to t and renders immediately, regardless of
// mode.
func (p *Player) SetTime(t timeval.T) {
	p.mu.Lock()
	p.mode = ModeScrubbing
	p.time = t
	clip, b, compose := p.clip, p.binder, p.compose
	p.mu.Unlock()

	p.render(t, clip, b, compose)
}

// Advance moves time forward by the wall-clock delta scaled by the
// playback rate when Playing, then renders. A no-op when Paused or
// Scrubbing (scrubbing takes effect immediately through SetTime instead).
func (p *Player) Advance(delta timeval.T) {
	p.mu.Lock()
	if p.mode != ModePlaying || delta <= 0 {
		p.mu.Unlock()
		return
	}
	scaled := timeval.T(float64(delta) * p.rate)
	p.time = p.time.Add(scaled)
	t, clip, b, compose := p.time, p.clip, p.binder, p.compose
	p.mu.Unlock()

	p.render(t, clip, b, compose)
}

// render performs the three ordered phases of one sample step: (1) every
// property track's value is written through the Binder, (2) the bone
// composer runs once all writes for this tick have landed, (3) the tick
// is pushed to live preview subscribers. Unresolved tracks and read-only
// properties are silently skipped — the Player never aborts a tick.
func (p *Player) render(t timeval.T, clip *Clip, b *binder.Binder, compose func()) {
	if clip != nil && b != nil {
		for _, tr := range clip.Properties {
			writeProperty(b, tr, t)
		}
	}
	if compose != nil {
		compose()
	}
	select {
	case p.feed <- Tick{Time: t}:
	default:
		// No run-loop goroutine started (Start was never called) or no
		// subscriber ready; live preview is best-effort, never blocking.
	}
}

func writeProperty(b *binder.Binder, tr *track.Track, t timeval.T) {
	parent := tr.Parent()
	if parent == nil || parent.Kind != track.KindRef {
		return
	}
	acc, err := b.ResolveProperty(parent.ID, tr.Name, tr.PropValueKind)
	if err != nil || acc.Write == nil {
		return
	}
	value := valuetype.Default(tr.PropValueKind)
	if seq := resolveSequence(tr); seq != nil {
		value = seq.GetValueAt(t, value)
	}
	_ = acc.Write(value)
}

// resolveSequence returns tr's sampleable block sequence: a Keyframed
// track compiles its Curve on demand, exactly as pkg/modification's
// sampleTrack does, so a track never touched by an edit op's recompile
// still samples correctly (spec: "both forms can be sampled at any T").
func resolveSequence(tr *track.Track) *block.Sequence {
	if !tr.Keyframed {
		return tr.Blocks
	}
	seq, err := block.Compile(tr.Curve, tr.SampleRate)
	if err != nil {
		return tr.Blocks
	}
	return seq
}

// Start runs the feed broadcast loop until ctx is cancelled, mirroring
// log.Logger.Start's sub/unsub/feed select loop.
func (p *Player) Start(ctx context.Context) {
	go func() {
		subs := map[feedChan]struct{}{}
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-p.sub:
				subs[ch] = struct{}{}
			case ch := <-p.unsub:
				close(ch)
				delete(subs, ch)
			case tick := <-p.feed:
				for ch := range subs {
					select {
					case ch <- tick:
					default:
					}
				}
			}
		}
	}()
}

// Subscribe returns a new tick feed and its cancel function.
func (p *Player) Subscribe() (Feed, CancelFunc) {
	ch := make(feedChan)
	p.sub <- ch
	return ch, func() { p.unSubscribe(ch) }
}

func (p *Player) unSubscribe(ch feedChan) {
	for {
		select {
		case p.unsub <- ch:
			return
		case <-ch:
		}
	}
}
