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

// Package track implements the track forest: Ref tracks that name a scene
// target and Prop tracks that hold a track's sampled or keyframed data.
// The tree walk (parent link, ordered children, depth-first iteration,
// root-to-node path) is grounded on storage.crawler's dir type, and the
// GUID-keyed manager with duplicate-name rejection is grounded on
// group.Manager's map-of-named-entries-plus-mutex shape.
package track

import (
	"errors"
	"fmt"
	"sync"

	"moviecore/pkg/block"
	"moviecore/pkg/valuetype"
)

// Kind distinguishes the two track sub-kinds.
type Kind uint8

const (
	KindRef Kind = iota
	KindProp
)

// ErrDuplicateName is returned by AddChild when a sibling already has the
// new track's name.
var ErrDuplicateName = errors.New("track: sibling with this name already exists")

// ErrLocked is returned by mutation operations on a locked track.
var ErrLocked = errors.New("track: track is locked")

// ErrNotFound is returned when an id doesn't resolve to a track in the tree.
var ErrNotFound = errors.New("track: no such track")

// ErrCycle is returned when reparenting would make a track its own ancestor.
var ErrCycle = errors.New("track: reparenting would create a cycle")

// Track is one node of the forest, identified by a stable GUID.
type Track struct {
	ID     string
	Name   string
	Kind   Kind
	Locked bool

	// RefTargetType names the scene target type a Ref track resolves to
	// (e.g. "GameObject", "SkinnedMesh"). Empty for Prop tracks.
	RefTargetType string

	// PropValueKind is the value type a Prop track's property path holds.
	// Zero value for Ref tracks.
	PropValueKind valuetype.Kind

	// SampleRate overrides the project's default for this track; zero
	// means inherit.
	SampleRate uint32

	// Keyframed marks a Prop track whose data is a curve rather than a
	// committed block sequence.
	Keyframed bool
	Curve     []block.Keyframe
	Blocks    *block.Sequence

	parent   *Track
	children []*Track
}

// Parent returns the track's parent, or nil at the forest root.
func (t *Track) Parent() *Track { return t.parent }

// Children returns the ordered child list. The caller must not mutate it.
func (t *Track) Children() []*Track { return t.children }

// Tree owns a forest of Tracks indexed by GUID.
type Tree struct {
	mu    sync.Mutex
	byID  map[string]*Track
	roots []*Track
}

// NewTree returns an empty track forest.
func NewTree() *Tree {
	return &Tree{byID: make(map[string]*Track)}
}

// Find looks up a track by id.
func (tr *Tree) Find(id string) (*Track, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	t, ok := tr.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// FindChild looks up a direct child of parent by name. parent == nil
// searches the forest roots.
func (tr *Tree) FindChild(parent *Track, name string) (*Track, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	siblings := tr.roots
	if parent != nil {
		siblings = parent.children
	}
	for _, c := range siblings {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddChild inserts child under parent (nil for a new root), rejecting a
// duplicate sibling name and rejecting mutation on a locked parent.
func (tr *Tree) AddChild(parent *Track, child *Track) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if parent != nil && parent.Locked {
		return fmt.Errorf("%w: parent %s", ErrLocked, parent.ID)
	}

	siblings := tr.roots
	if parent != nil {
		siblings = parent.children
	}
	for _, c := range siblings {
		if c.Name == child.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, child.Name)
		}
	}

	child.parent = parent
	if parent != nil {
		parent.children = append(parent.children, child)
	} else {
		tr.roots = append(tr.roots, child)
	}
	tr.byID[child.ID] = child
	tr.index(child)
	return nil
}

// index registers child and its existing descendants in byID, used when a
// subtree is reattached rather than built node by node.
func (tr *Tree) index(t *Track) {
	tr.byID[t.ID] = t
	for _, c := range t.children {
		tr.index(c)
	}
}

// Remove deletes the track and all of its descendants. Fails Locked if
// the track or its direct parent is locked; higher ancestors are not checked.
func (tr *Tree) Remove(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, ok := tr.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.Locked {
		return fmt.Errorf("%w: %s", ErrLocked, id)
	}

	if t.parent != nil {
		if t.parent.Locked {
			return fmt.Errorf("%w: parent %s", ErrLocked, t.parent.ID)
		}
		t.parent.children = removeTrack(t.parent.children, t)
	} else {
		tr.roots = removeTrack(tr.roots, t)
	}

	tr.unindex(t)
	return nil
}

func removeTrack(list []*Track, victim *Track) []*Track {
	out := make([]*Track, 0, len(list))
	for _, c := range list {
		if c != victim {
			out = append(out, c)
		}
	}
	return out
}

func (tr *Tree) unindex(t *Track) {
	delete(tr.byID, t.ID)
	for _, c := range t.children {
		tr.unindex(c)
	}
}

// IterDepthFirst returns every track in the forest in pre-order.
func (tr *Tree) IterDepthFirst() []*Track {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []*Track
	var walk func(*Track)
	walk = func(t *Track) {
		out = append(out, t)
		for _, c := range t.children {
			walk(c)
		}
	}
	for _, r := range tr.roots {
		walk(r)
	}
	return out
}

// Path returns the root-to-node sequence of display names for t.
func Path(t *Track) []string {
	var names []string
	for n := t; n != nil; n = n.parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}

// Reparent moves child under newParent, rejecting the move if it would
// create a cycle (newParent is child or one of child's descendants) or if
// child, its current parent, or newParent is locked.
func (tr *Tree) Reparent(child, newParent *Track) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if child.Locked {
		return fmt.Errorf("%w: %s", ErrLocked, child.ID)
	}
	if child.parent != nil && child.parent.Locked {
		return fmt.Errorf("%w: current parent %s", ErrLocked, child.parent.ID)
	}
	if newParent != nil && newParent.Locked {
		return fmt.Errorf("%w: new parent %s", ErrLocked, newParent.ID)
	}
	for n := newParent; n != nil; n = n.parent {
		if n == child {
			return ErrCycle
		}
	}

	if child.parent != nil {
		child.parent.children = removeTrack(child.parent.children, child)
	} else {
		tr.roots = removeTrack(tr.roots, child)
	}

	child.parent = newParent
	if newParent != nil {
		newParent.children = append(newParent.children, child)
	} else {
		tr.roots = append(tr.roots, child)
	}
	return nil
}
