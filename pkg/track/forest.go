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

package track

import (
	"errors"
	"fmt"
	"sync"
)

// ErrProjectExists is returned by Forest.Add when id already names a
// registered Tree.
var ErrProjectExists = errors.New("track: project with this id already exists")

// ErrProjectNotExist is returned when id doesn't name a registered Tree.
var ErrProjectNotExist = errors.New("track: no such project")

// Forest keys a set of independently-edited Trees by project-scoped
// GUID, the way group.Manager keys monitor configs by id: one
// mutex-guarded map, reject on duplicate insert, plain delete. A host
// embedding the editor across several concurrently open projects keeps
// one Forest rather than threading a map through by hand.
type Forest struct {
	mu    sync.Mutex
	trees map[string]*Tree
}

// NewForest returns an empty Forest.
func NewForest() *Forest {
	return &Forest{trees: make(map[string]*Tree)}
}

// Add registers tree under id, rejecting a duplicate id the same way
// Tree.AddChild rejects a duplicate sibling name.
func (f *Forest) Add(id string, tree *Tree) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.trees[id]; exists {
		return fmt.Errorf("%w: %s", ErrProjectExists, id)
	}
	f.trees[id] = tree
	return nil
}

// Get looks up the Tree registered under id.
func (f *Forest) Get(id string) (*Tree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotExist, id)
	}
	return t, nil
}

// Remove deregisters id's Tree, leaving the Tree itself untouched — any
// Context still holding a reference to it keeps working, just outside
// the Forest's bookkeeping.
func (f *Forest) Remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.trees[id]; !exists {
		return fmt.Errorf("%w: %s", ErrProjectNotExist, id)
	}
	delete(f.trees, id)
	return nil
}

// IDs returns every registered project id, in no particular order.
func (f *Forest) IDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.trees))
	for id := range f.trees {
		ids = append(ids, id)
	}
	return ids
}
