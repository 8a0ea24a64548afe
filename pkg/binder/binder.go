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

// Package binder resolves track ids to live scene targets and composes
// property paths into read/write accessors. The host-boundary shape —
// a small interface the embedder implements, plus a struct of
// notification hooks invalidating a resolution cache — mirrors
// video.reader/closer and monitor.Hooks.
package binder

import (
	"errors"
	"fmt"
	"sync"

	"moviecore/pkg/valuetype"
)

// ErrUnbound is returned when a track has no live scene target.
var ErrUnbound = errors.New("binder: track is unbound")

// ErrTypeMismatch is returned when a property path's declared value type
// doesn't match the track's targetType.
var ErrTypeMismatch = errors.New("binder: property value type mismatch")

// ErrReadOnly names the read-only property case. Nothing in this package
// returns it: a read-only property resolves to a PropertyAccessor whose
// Write is nil.
var ErrReadOnly = errors.New("binder: property is read-only")

// ErrNoSuchProperty is returned when a property path doesn't resolve on
// the parent's target type.
var ErrNoSuchProperty = errors.New("binder: no such property")

// SceneTarget is an opaque handle to a resolved scene object or component,
// supplied by the embedding host.
type SceneTarget interface {
	// TypeName identifies the target's concrete type for property-table
	// lookup (e.g. "GameObject", "SkinnedMesh").
	TypeName() string
}

// PropertyAccessor is the read/write pair a Prop track resolves to.
type PropertyAccessor struct {
	Read  func() valuetype.Value
	Write func(valuetype.Value) error // nil when the property is read-only.
}

// PropertyEntry is one row of a target type's static property table.
type PropertyEntry struct {
	Kind     valuetype.Kind
	Accessor func(SceneTarget) PropertyAccessor
}

// PropertyTable maps a property name to its entry for one target type.
type PropertyTable map[string]PropertyEntry

// SceneQuery is the host-implemented capability to look up a live scene
// target by the id a Ref track was bound to, and to describe a target's
// property table by type name.
type SceneQuery interface {
	Resolve(refTargetID string) (SceneTarget, bool)
	PropertyTable(typeName string) (PropertyTable, bool)
}

// Hooks are notifications the host fires on scene graph changes so the
// Binder can invalidate cached resolutions. All fields are optional.
type Hooks struct {
	OnAdd      func(refTargetID string)
	OnRemove   func(refTargetID string)
	OnReparent func(refTargetID string)
}

// Binder resolves track ids to live scene targets and caches the last
// resolution per track id until invalidated by a Hooks callback.
type Binder struct {
	scene SceneQuery
	mu    sync.Mutex
	cache map[string]SceneTarget // refTargetID -> resolved target
}

// New constructs a Binder over scene, wiring hooks to its cache
// invalidation.
func New(scene SceneQuery, hooks *Hooks) *Binder {
	b := &Binder{scene: scene, cache: make(map[string]SceneTarget)}
	if hooks != nil {
		wrap := func(inner func(string)) func(string) {
			return func(id string) {
				b.invalidate(id)
				if inner != nil {
					inner(id)
				}
			}
		}
		hooks.OnAdd = wrap(hooks.OnAdd)
		hooks.OnRemove = wrap(hooks.OnRemove)
		hooks.OnReparent = wrap(hooks.OnReparent)
	}
	return b
}

func (b *Binder) invalidate(refTargetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, refTargetID)
}

// ResolveRef produces the live target for a Ref track's bound id, or
// ErrUnbound when the target is absent or not yet resolved.
func (b *Binder) ResolveRef(refTargetID string) (SceneTarget, error) {
	b.mu.Lock()
	if t, ok := b.cache[refTargetID]; ok {
		b.mu.Unlock()
		return t, nil
	}
	b.mu.Unlock()

	t, ok := b.scene.Resolve(refTargetID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, refTargetID)
	}
	b.mu.Lock()
	b.cache[refTargetID] = t
	b.mu.Unlock()
	return t, nil
}

// ResolveProperty composes a Ref track's target with a property name,
// verifying the property's declared value type matches want.
func (b *Binder) ResolveProperty(refTargetID, propertyName string, want valuetype.Kind) (PropertyAccessor, error) {
	target, err := b.ResolveRef(refTargetID)
	if err != nil {
		return PropertyAccessor{}, err
	}
	table, ok := b.scene.PropertyTable(target.TypeName())
	if !ok {
		return PropertyAccessor{}, fmt.Errorf("%w: no property table for %s", ErrNoSuchProperty, target.TypeName())
	}
	entry, ok := table[propertyName]
	if !ok {
		return PropertyAccessor{}, fmt.Errorf("%w: %s on %s", ErrNoSuchProperty, propertyName, target.TypeName())
	}
	if entry.Kind != want {
		return PropertyAccessor{}, fmt.Errorf("%w: %s is %s, track wants %s", ErrTypeMismatch, propertyName, entry.Kind, want)
	}
	return entry.Accessor(target), nil
}
